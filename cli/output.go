package cli

import (
	"encoding/json"
	"io"
)

// writeOutput prints v as indented JSON or through text, depending on format.
func writeOutput(w io.Writer, format string, v any, text func(io.Writer) error) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
