package analysis

import (
	"encoding/json"
	"fmt"
)

// Envelope types.
const (
	EnvelopeReasoning = "reasoning"
	EnvelopeContent   = "content"
)

// Envelope is one NDJSON line of a framed stream.
type Envelope struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// MarshalLine encodes the envelope followed by a newline.
func (e Envelope) MarshalLine() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ParseEnvelope decodes one line. Lines that are not JSON objects with a
// string type field are rejected.
func ParseEnvelope(line []byte) (Envelope, error) {
	var raw struct {
		Type    *string `json:"type"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Envelope{}, err
	}
	if raw.Type == nil {
		return Envelope{}, fmt.Errorf("envelope has no type")
	}
	env := Envelope{Type: *raw.Type}
	if raw.Content != nil {
		env.Content = *raw.Content
	}
	return env, nil
}

// StreamError reports a failure after the stream was opened. Readers of a
// failed stream observe it instead of io.EOF.
type StreamError struct {
	Err error
}

// Error implements the error interface for StreamError.
func (e *StreamError) Error() string {
	return fmt.Sprintf("analysis stream failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
