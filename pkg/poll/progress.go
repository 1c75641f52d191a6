package poll

import (
	"fmt"
	"io"
)

// Progress renders a single-line counter to w as devices finish. Its Update
// method has the OnProgress signature.
type Progress struct {
	w     io.Writer
	label string
}

// NewProgress returns a progress reporter writing to w under the given label.
func NewProgress(w io.Writer, label string) *Progress {
	return &Progress{w: w, label: label}
}

// Update rewrites the counter line; the final update ends it with a newline.
func (p *Progress) Update(done, total int) {
	fmt.Fprintf(p.w, "\r%s: %d/%d", p.label, done, total)
	if done == total {
		fmt.Fprintln(p.w)
	}
}
