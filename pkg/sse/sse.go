// Package sse reads Server-Sent Event frames from a byte stream.
//
// [Scanner] implements the W3C framing rules: frames are delimited by blank
// lines, "data:" lines carry the payload (joined with newlines when
// repeated), "event:" names the frame, and comment lines and unknown fields
// are ignored. [Read] runs a Scanner on its own goroutine so callers can
// select on the next frame together with timers and cancellation.
package sse

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when a frame's data is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("sse: frame data is not valid UTF-8")

// Frame is one event parsed from the stream.
type Frame struct {
	// Event is the "event:" field, empty when the frame did not name one.
	Event string

	// Data is the payload assembled from the frame's "data:" lines.
	Data string
}

// Scanner reads frames from an io.Reader.
//
//	scanner := sse.NewScanner(body)
//	for scanner.Next() {
//	    frame := scanner.Frame()
//	}
//	if err := scanner.Err(); err != nil {
//	    // malformed framing or read failure
//	}
type Scanner struct {
	reader  *bufio.Reader
	current Frame
	err     error
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next frame. It returns false at EOF or on error;
// call Err to tell the two apart.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.current = Frame{}

	var (
		dataLines []string
		event     string
		hasData   bool
	)

	emit := func() bool {
		data := strings.Join(dataLines, "\n")
		if !utf8.ValidString(data) {
			s.err = ErrInvalidUTF8
			return false
		}
		s.current = Frame{Event: event, Data: data}
		return true
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				s.err = err
				return false
			}
			if line == "" {
				s.err = io.EOF
				if hasData {
					return emit()
				}
				return false
			}
			// Partial last line without a trailing newline: process it,
			// the next read reports EOF.
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				return emit()
			}
			event = ""
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			event = value
		}
	}
}

// Frame returns the most recently parsed frame. Only valid after Next
// returned true.
func (s *Scanner) Frame() Frame {
	return s.current
}

// Err returns the first error encountered, or nil after a clean EOF.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

// Result is one element delivered by Read: either a frame or the error
// that ended the stream.
type Result struct {
	Frame Frame
	Err   error
}

// Read scans r on a new goroutine and delivers frames on the returned
// channel. The channel is closed after a clean EOF; a read or framing
// error is delivered as the final element before the close. The goroutine
// exits early when ctx is cancelled. Closing r unblocks a pending read.
func Read(ctx context.Context, r io.Reader) <-chan Result {
	ch := make(chan Result)
	go func() {
		defer close(ch)
		scanner := NewScanner(r)
		for scanner.Next() {
			select {
			case ch <- Result{Frame: scanner.Frame()}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case ch <- Result{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}
