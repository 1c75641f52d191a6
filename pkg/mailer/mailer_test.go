package mailer

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func captureMailer(t *testing.T, failFor string) (*Mailer, *[]sentMail) {
	t.Helper()
	var sent []sentMail
	m := New("mail.example.net", 587, "reports@example.net", "secret")
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if failFor != "" && len(to) == 1 && to[0] == failFor {
			return io.ErrClosedPipe
		}
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: msg})
		return nil
	}
	return m, &sent
}

func TestSendOneMessagePerRecipient(t *testing.T) {
	m, sent := captureMailer(t, "")
	err := m.Send([]string{"a@example.net", "b@example.net"}, "audit", "done")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(*sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(*sent))
	}
	first := (*sent)[0]
	if first.addr != "mail.example.net:587" {
		t.Errorf("addr = %q", first.addr)
	}
	msg, err := mail.ReadMessage(bytes.NewReader(first.msg))
	if err != nil {
		t.Fatalf("message does not parse: %v", err)
	}
	if got := msg.Header.Get("Subject"); got != "audit" {
		t.Errorf("Subject = %q, want %q", got, "audit")
	}
	if got := msg.Header.Get("From"); got != "reports@example.net" {
		t.Errorf("From = %q", got)
	}
	body, _ := io.ReadAll(msg.Body)
	if !strings.Contains(string(body), "done") {
		t.Errorf("body = %q, missing text", body)
	}
}

func TestSendPartialFailure(t *testing.T) {
	m, sent := captureMailer(t, "bad@example.net")
	err := m.Send([]string{"bad@example.net", "good@example.net"}, "s", "b")
	if err == nil {
		t.Fatal("Send() error = nil, want failure for bad recipient")
	}
	if len(*sent) != 1 || (*sent)[0].to[0] != "good@example.net" {
		t.Errorf("good recipient not delivered: %+v", *sent)
	}
}

func TestSendNoRecipients(t *testing.T) {
	m, sent := captureMailer(t, "")
	if err := m.Send(nil, "s", "b"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(*sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(*sent))
	}
}

func TestSendFileAttachesPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.csv")
	content := []byte("Site,Speed\nriverside,50 Mbps\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	m, sent := captureMailer(t, "")
	if err := m.SendFile([]string{"a@example.net"}, "audit", "attached", path); err != nil {
		t.Fatalf("SendFile() error = %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(*sent))
	}

	msg, err := mail.ReadMessage(bytes.NewReader((*sent)[0].msg))
	if err != nil {
		t.Fatalf("message does not parse: %v", err)
	}
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/mixed" {
		t.Fatalf("Content-Type = %q (err %v), want multipart/mixed", mediaType, err)
	}

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var sawText, sawFile bool
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		data, _ := io.ReadAll(part)
		switch {
		case strings.HasPrefix(part.Header.Get("Content-Type"), "text/plain"):
			sawText = true
			if !strings.Contains(string(data), "attached") {
				t.Errorf("text part = %q", data)
			}
		case strings.Contains(part.Header.Get("Content-Disposition"), "audit.csv"):
			sawFile = true
			// The part body is still base64; check the encoded prefix.
			if !bytes.Contains(data, content) && !strings.Contains(string(data), "U2l0ZSxTcGVlZA") {
				t.Errorf("attachment payload missing, got %q", data)
			}
		}
	}
	if !sawText || !sawFile {
		t.Errorf("parts missing: text=%v file=%v", sawText, sawFile)
	}
}

func TestMissingAttachmentFails(t *testing.T) {
	m, _ := captureMailer(t, "")
	if err := m.SendFile([]string{"a@example.net"}, "s", "b", "/nonexistent/file.csv"); err == nil {
		t.Error("SendFile() error = nil, want missing-file error")
	}
}
