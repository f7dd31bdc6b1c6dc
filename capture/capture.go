package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Output is the text written to each stream while a capture was open.
type Output struct {
	Stdout string
	Stderr string
}

// Capturer is an open capture scope.
//
// Contract:
// - Close must be called exactly once per scope on every path; further calls
// return the same Output.
// - Writers must not be used after Close.
type Capturer interface {
	Stdout() io.Writer
	Stderr() io.Writer
	Close() (Output, error)
}

var active atomic.Bool

// Session redirects os.Stdout and os.Stderr until Close.
type Session struct {
	origOut *os.File
	origErr *os.File
	outW    *os.File
	errW    *os.File

	outBuf bytes.Buffer
	errBuf bytes.Buffer
	drains sync.WaitGroup

	once sync.Once
	out  Output
	err  error
}

// Start opens a capture session. If the pipes cannot be created the process
// streams are left untouched and the error wraps ErrPipe.
func Start() (*Session, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		active.Store(false)
		return nil, fmt.Errorf("%w: stdout: %w", ErrPipe, err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		_ = outR.Close()
		_ = outW.Close()
		active.Store(false)
		return nil, fmt.Errorf("%w: stderr: %w", ErrPipe, err)
	}

	s := &Session{
		origOut: os.Stdout,
		origErr: os.Stderr,
		outW:    outW,
		errW:    errW,
	}
	s.drains.Add(2)
	go s.drain(outR, &s.outBuf)
	go s.drain(errR, &s.errBuf)

	os.Stdout = outW
	os.Stderr = errW
	return s, nil
}

func (s *Session) drain(r *os.File, buf *bytes.Buffer) {
	defer s.drains.Done()
	_, _ = io.Copy(buf, r)
	_ = r.Close()
}

// Stdout returns the writer that replaced os.Stdout.
func (s *Session) Stdout() io.Writer { return s.outW }

// Stderr returns the writer that replaced os.Stderr.
func (s *Session) Stderr() io.Writer { return s.errW }

// Close restores the original streams, waits for buffered output and returns
// it. The streams are restored even when closing a pipe fails.
func (s *Session) Close() (Output, error) {
	s.once.Do(func() {
		os.Stdout = s.origOut
		os.Stderr = s.origErr

		s.err = errors.Join(s.outW.Close(), s.errW.Close())
		s.drains.Wait()
		s.out = Output{Stdout: s.outBuf.String(), Stderr: s.errBuf.String()}

		active.Store(false)
	})
	return s.out, s.err
}

// Buffer is a Capturer backed by in-memory buffers only.
type Buffer struct {
	mu     sync.Mutex
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Stdout returns the standard output writer.
func (b *Buffer) Stdout() io.Writer { return lockedWriter{mu: &b.mu, w: &b.stdout} }

// Stderr returns the standard error writer.
func (b *Buffer) Stderr() io.Writer { return lockedWriter{mu: &b.mu, w: &b.stderr} }

// Close returns the buffered text.
func (b *Buffer) Close() (Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Output{Stdout: b.stdout.String(), Stderr: b.stderr.String()}, nil
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
