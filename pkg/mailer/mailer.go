// Package mailer delivers run reports over SMTP, one message per recipient.
package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/netsweep/netsweep/pkg/util"
)

// Mailer sends through one SMTP submission endpoint with STARTTLS.
type Mailer struct {
	Host     string
	Port     int
	From     string
	Password string

	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New returns a Mailer for the given submission endpoint.
func New(host string, port int, from, password string) *Mailer {
	return &Mailer{Host: host, Port: port, From: from, Password: password}
}

func (m *Mailer) addr() string {
	port := m.Port
	if port == 0 {
		port = 587
	}
	return fmt.Sprintf("%s:%d", m.Host, port)
}

func (m *Mailer) sendFunc() func(string, smtp.Auth, string, []string, []byte) error {
	if m.send != nil {
		return m.send
	}
	return smtp.SendMail
}

// Send delivers a plain-text message to each recipient individually, so one
// bad mailbox does not block the rest. An empty recipient list is a no-op.
func (m *Mailer) Send(recipients []string, subject, body string) error {
	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)
	var firstErr error
	for _, rcpt := range recipients {
		msg := plainMessage(m.From, rcpt, subject, body)
		if err := m.sendFunc()(m.addr(), auth, m.From, []string{rcpt}, msg); err != nil {
			util.Errorf("mail to %s: %v", rcpt, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("mail to %s: %w", rcpt, err)
			}
		}
	}
	return firstErr
}

// SendFile delivers the message with one file attached.
func (m *Mailer) SendFile(recipients []string, subject, body, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("attachment: %w", err)
	}

	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)
	var firstErr error
	for _, rcpt := range recipients {
		msg, err := attachmentMessage(m.From, rcpt, subject, body, filepath.Base(path), data)
		if err != nil {
			return err
		}
		if err := m.sendFunc()(m.addr(), auth, m.From, []string{rcpt}, msg); err != nil {
			util.Errorf("mail to %s: %v", rcpt, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("mail to %s: %w", rcpt, err)
			}
		}
	}
	return firstErr
}

func plainMessage(from, to, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.Bytes()
}

func attachmentMessage(from, to, subject, body, filename string, data []byte) ([]byte, error) {
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)

	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\n", from, to, subject)
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	textHdr := textproto.MIMEHeader{}
	textHdr.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := mw.CreatePart(textHdr)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(part, "%s\r\n", body)

	fileHdr := textproto.MIMEHeader{}
	fileHdr.Set("Content-Type", "application/octet-stream")
	fileHdr.Set("Content-Transfer-Encoding", "base64")
	fileHdr.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	part, err = mw.CreatePart(fileHdr)
	if err != nil {
		return nil, err
	}
	if err := writeBase64(part, data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeBase64 emits the payload base64-encoded in 76-column lines.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:n]); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
