// Package format renders command output as JSON or EDN.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	JSON = "json"
	EDN  = "edn"
)

// Write writes v in the requested format, followed by a newline. An empty
// format means JSON.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Stream writes one compact record per line. It is safe for concurrent use.
type Stream struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func NewStream(w io.Writer, format string) *Stream {
	return &Stream{w: w, format: format}
}

func (s *Stream) Emit(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Write(s.w, v, s.format, false)
}
