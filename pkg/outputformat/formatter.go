// Package outputformat encodes overview bundles for external renderers.
package outputformat

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format names an encoding.
type Format string

const (
	JSON    Format = "json"
	MsgPack Format = "msgpack"
)

// ParseFormat accepts "json" or "msgpack" in any case.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case JSON, MsgPack:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q (use json or msgpack)", name)
}

// FormatForPath picks MsgPack for .msgpack or .mpk files and JSON otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return MsgPack
	}
	return JSON
}

// Formatter handles encoding data in JSON or MessagePack format
type Formatter struct {
	format Format
	indent bool
}

// NewFormatter creates a formatter for format. indent only affects JSON.
func NewFormatter(format Format, indent bool) *Formatter {
	return &Formatter{format: format, indent: indent}
}

// Write encodes data to w.
func (f *Formatter) Write(w io.Writer, data any) error {
	if f.format == MsgPack {
		return f.writeMsgPack(w, data)
	}
	return f.writeJSON(w, data)
}

func (f *Formatter) writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

func (f *Formatter) writeMsgPack(w io.Writer, data any) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
