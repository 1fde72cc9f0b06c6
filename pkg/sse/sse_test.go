package sse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func collect(t *testing.T, input string) ([]Frame, error) {
	t.Helper()
	scanner := NewScanner(strings.NewReader(input))
	var frames []Frame
	for scanner.Next() {
		frames = append(frames, scanner.Frame())
	}
	return frames, scanner.Err()
}

func TestScanner(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Frame
	}{
		{
			name:  "named frames",
			input: "event: response.created\ndata: {\"type\":\"response.created\"}\n\nevent: response.completed\ndata: {}\n\n",
			want: []Frame{
				{Event: "response.created", Data: `{"type":"response.created"}`},
				{Event: "response.completed", Data: "{}"},
			},
		},
		{
			name:  "data only",
			input: "data: {\"a\":1}\n\ndata: [DONE]\n\n",
			want:  []Frame{{Data: `{"a":1}`}, {Data: "[DONE]"}},
		},
		{
			name:  "multi-line data joined",
			input: "data: first\ndata: second\n\n",
			want:  []Frame{{Data: "first\nsecond"}},
		},
		{
			name:  "comments and unknown fields ignored",
			input: ": keep-alive\nid: 7\nretry: 1000\nfoo: bar\ndata: x\n\n",
			want:  []Frame{{Data: "x"}},
		},
		{
			name:  "no space after colon",
			input: "event:ping\ndata:payload\n\n",
			want:  []Frame{{Event: "ping", Data: "payload"}},
		},
		{
			name:  "CRLF line endings",
			input: "data: crlf\r\n\r\n",
			want:  []Frame{{Data: "crlf"}},
		},
		{
			name:  "trailing frame without blank line",
			input: "data: one\n\ndata: two",
			want:  []Frame{{Data: "one"}, {Data: "two"}},
		},
		{
			name:  "event without data is dropped",
			input: "event: orphan\n\ndata: kept\n\n",
			want:  []Frame{{Data: "kept"}},
		},
		{
			name:  "empty stream",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collect(t, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d frames %+v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("frame %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScanner_InvalidUTF8(t *testing.T) {
	frames, err := collect(t, "data: ok\n\ndata: \xff\xfe\n\ndata: never\n\n")
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("err = %v, want ErrInvalidUTF8", err)
	}
	if len(frames) != 1 || frames[0].Data != "ok" {
		t.Errorf("frames = %+v, want only the first frame", frames)
	}
}

type errReader struct {
	data string
	err  error
}

func (r *errReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestScanner_ReadError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	scanner := NewScanner(&errReader{data: "data: a\n\ndata: partial", err: cause})

	if !scanner.Next() || scanner.Frame().Data != "a" {
		t.Fatalf("expected first frame, got %+v", scanner.Frame())
	}
	if scanner.Next() {
		t.Fatalf("expected no frame after read error, got %+v", scanner.Frame())
	}
	if !errors.Is(scanner.Err(), cause) {
		t.Errorf("Err() = %v, want %v", scanner.Err(), cause)
	}
}

func TestRead_DeliversFramesThenCloses(t *testing.T) {
	ch := Read(context.Background(), strings.NewReader("data: 1\n\ndata: 2\n\n"))

	var data []string
	for res := range ch {
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		data = append(data, res.Frame.Data)
	}
	if strings.Join(data, ",") != "1,2" {
		t.Errorf("data = %v, want [1 2]", data)
	}
}

func TestRead_ErrorIsLastElement(t *testing.T) {
	cause := errors.New("unexpected EOF")
	ch := Read(context.Background(), &errReader{data: "data: 1\n\n", err: cause})

	first := <-ch
	if first.Err != nil || first.Frame.Data != "1" {
		t.Fatalf("first = %+v, want frame 1", first)
	}
	last, ok := <-ch
	if !ok || !errors.Is(last.Err, cause) {
		t.Fatalf("last = %+v (ok=%v), want error", last, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after the error")
	}
}

func TestRead_StopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := Read(ctx, pr)

	go pw.Write([]byte("data: 1\n\n"))
	// Nobody receives the frame; cancelling must release the goroutine.
	time.Sleep(20 * time.Millisecond)
	cancel()
	pr.CloseWithError(io.ErrClosedPipe)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("reader goroutine did not exit after cancel")
		}
	}
}
