package client

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Renderer is the terminal output surface. The manager never prints
// directly; everything user-visible goes through this interface so tests
// can capture it.
type Renderer interface {
	Message(username, content string, timestamp time.Time, own, system bool)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Status(msg string)
	Clear()
}

// TextRenderer writes plain timestamped lines. A single mutex keeps
// interleaved output from the send and receive loops readable.
type TextRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTextRenderer(out io.Writer) *TextRenderer {
	return &TextRenderer{out: out}
}

func (r *TextRenderer) Message(username, content string, timestamp time.Time, own, system bool) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	ts := timestamp.Local().Format("15:04:05")

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case system:
		fmt.Fprintf(r.out, "[%s] SYSTEM: %s\n", ts, content)
	case own:
		fmt.Fprintf(r.out, "[%s] %s (you): %s\n", ts, username, content)
	default:
		fmt.Fprintf(r.out, "[%s] %s: %s\n", ts, username, content)
	}
}

func (r *TextRenderer) Info(msg string) {
	r.printTagged("INFO", msg)
}

func (r *TextRenderer) Warn(msg string) {
	r.printTagged("WARNING", msg)
}

func (r *TextRenderer) Error(msg string) {
	r.printTagged("ERROR", msg)
}

func (r *TextRenderer) Status(msg string) {
	r.printTagged("STATUS", msg)
}

func (r *TextRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, "\033[2J\033[H")
}

func (r *TextRenderer) printTagged(tag, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s\n", tag, msg)
}
