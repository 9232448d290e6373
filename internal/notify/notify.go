// Package notify is the user-visible message channel (toasts in a browser,
// stderr lines in the CLI).
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Sink interface {
	Success(msg string)
	Error(msg string)
}

// Log writes notifications through zerolog.
type Log struct {
	l zerolog.Logger
}

func NewLog(l zerolog.Logger) *Log { return &Log{l: l} }

func (n *Log) Success(msg string) { n.l.Info().Str("notify", string(LevelSuccess)).Msg(msg) }
func (n *Log) Error(msg string)   { n.l.Error().Str("notify", string(LevelError)).Msg(msg) }

// Lines prints successes to out and errors to errOut, one per line.
type Lines struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

func NewLines(out, errOut io.Writer) *Lines { return &Lines{out: out, errOut: errOut} }

func (n *Lines) Success(msg string) { n.write(n.out, msg) }
func (n *Lines) Error(msg string)   { n.write(n.errOut, msg) }

func (n *Lines) write(w io.Writer, msg string) {
	n.mu.Lock()
	fmt.Fprintln(w, msg)
	n.mu.Unlock()
}

// Nop drops everything.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}

type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every notification in order.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(lvl Level, msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{Level: lvl, Text: msg})
	r.mu.Unlock()
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Errors returns only the error texts.
func (r *Recorder) Errors() []string {
	var out []string
	for _, m := range r.Messages() {
		if m.Level == LevelError {
			out = append(out, m.Text)
		}
	}
	return out
}
