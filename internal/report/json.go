package report

import (
	"io"

	"github.com/goccy/go-json"
)

// WriteJSON encodes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Marshal encodes v as compact JSON.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
