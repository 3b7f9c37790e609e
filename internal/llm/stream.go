package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Stream iterates over the text deltas of one generation.
//
//	for s.Next() {
//		fmt.Print(s.Text())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream interface {
	// Next advances to the next text delta. It returns false at the end of
	// the stream or on error.
	Next() bool

	// Text returns the current text delta.
	Text() string

	// Err returns the error that stopped the stream, if any. A stream that
	// ends without the provider's stop event reports io.ErrUnexpectedEOF.
	Err() error

	// Close releases the connection.
	Close() error
}

// streamEvent covers the server-sent event payloads the stream cares about.
type streamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// eventStream parses the Messages API server-sent events.
type eventStream struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	scanner *bufio.Scanner

	text    string
	err     error
	done    bool
	stopped bool

	closeOnce sync.Once
}

func newEventStream(body io.ReadCloser, cancel context.CancelFunc) *eventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventStream{body: body, cancel: cancel, scanner: scanner}
}

func (s *eventStream) Next() bool {
	if s.done {
		return false
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var evt streamEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			continue
		}

		switch evt.Type {
		case "content_block_delta":
			if evt.Delta != nil && evt.Delta.Type == "text_delta" && evt.Delta.Text != "" {
				s.text = evt.Delta.Text
				return true
			}
		case "error":
			msg := "unknown error"
			if evt.Error != nil {
				msg = fmt.Sprintf("%s: %s", evt.Error.Type, evt.Error.Message)
			}
			s.finish(fmt.Errorf("API error: %s", msg))
			return false
		case "message_stop":
			s.stopped = true
			s.finish(nil)
			return false
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.finish(err)
		return false
	}
	if !s.stopped {
		s.finish(io.ErrUnexpectedEOF)
		return false
	}
	s.finish(nil)
	return false
}

func (s *eventStream) finish(err error) {
	s.done = true
	s.text = ""
	s.err = err
}

func (s *eventStream) Text() string {
	return s.text
}

func (s *eventStream) Err() error {
	return s.err
}

func (s *eventStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
		s.cancel()
	})
	return err
}
