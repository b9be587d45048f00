package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON, for piping reports into other tools.
	FormatJSON OutputFormat = "json"
)

// Formatter renders command results such as verification reports and
// validation summaries.
type Formatter struct {
	format OutputFormat
}

// NewFormatter creates a formatter; unknown formats fall back to text.
func NewFormatter(format OutputFormat) *Formatter {
	if format != FormatJSON {
		format = FormatText
	}
	return &Formatter{format: format}
}

// Format renders data as bytes.
func (f *Formatter) Format(data any) ([]byte, error) {
	if f.format == FormatJSON {
		return json.MarshalIndent(data, "", "  ")
	}
	return fmt.Appendf(nil, "%v\n", data), nil
}

// FormatTo renders data to w.
func (f *Formatter) FormatTo(w io.Writer, data any) error {
	if f.format == FormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}
