// Package transcript decodes the JSON-lines session transcripts written by
// the agent runtime.
package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	TypeMessage   = "message"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	partThinking = "thinking"
)

var ErrEmptyLine = errors.New("transcript: empty line")

// Record is one line of a transcript file.
type Record struct {
	Type      string   `json:"type"`
	Timestamp any      `json:"timestamp,omitempty"`
	Message   *Message `json:"message,omitempty"`
}

// Message is the chat payload carried by a message record. Content is either
// a JSON string or an array of typed parts.
type Message struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content,omitempty"`
	Timestamp any             `json:"timestamp,omitempty"`
}

// Part is one element of an array-valued message content.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ParseLine decodes a single transcript line.
func ParseLine(line []byte) (Record, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Record{}, ErrEmptyLine
	}

	var rec Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return Record{}, fmt.Errorf("transcript: decode line: %w", err)
	}
	return rec, nil
}

// IsChatMessage reports whether the record is a user or assistant message.
func (r Record) IsChatMessage() bool {
	if r.Type != TypeMessage || r.Message == nil {
		return false
	}
	return r.Message.Role == RoleUser || r.Message.Role == RoleAssistant
}

// Time resolves the record timestamp, preferring the message's own value.
func (r Record) Time() (time.Time, bool) {
	if r.Message != nil {
		if ts, ok := Timestamp(r.Message.Timestamp); ok {
			return ts, true
		}
	}
	return Timestamp(r.Timestamp)
}

// Text extracts the indexable text of a message. Thinking parts and empty
// parts are skipped; remaining parts are joined with sep.
func (m Message) Text(sep string) string {
	raw := bytes.TrimSpace(m.Content)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '[':
		var parts []Part
		if err := json.Unmarshal(raw, &parts); err != nil {
			return ""
		}
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			if part.Type == partThinking {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			texts = append(texts, text)
		}
		return strings.Join(texts, sep)
	default:
		return ""
	}
}

// Timestamp returns the first value that parses as a point in time. Numbers
// are epoch milliseconds, or seconds when below 1e11; strings are RFC 3339 or
// anything dateparse understands.
func Timestamp(values ...any) (time.Time, bool) {
	for _, value := range values {
		if ts, ok := parseOne(value); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseOne(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case float64:
		return fromEpoch(v)
	case int64:
		return fromEpoch(float64(v))
	case int:
		return fromEpoch(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromEpoch(f)
	case string:
		return parseString(v)
	}
	return time.Time{}, false
}

func fromEpoch(v float64) (time.Time, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return time.Time{}, false
	}
	if v < 1e11 {
		v *= 1000
	}
	return time.UnixMilli(int64(v)).UTC(), true
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f)
	}
	ts, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
