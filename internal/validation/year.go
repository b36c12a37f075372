package validation

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// YearInput holds a passout year exactly as it was submitted. Clients send
// it either as a string (HTML forms) or as a number (JSON and YAML clients);
// both decode to the same raw text so the form rules see one representation.
type YearInput string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (y *YearInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*y = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = YearInput(s)
	default:
		*y = YearInput(data)
	}
	return nil
}

// UnmarshalYAML accepts any scalar node.
func (y *YearInput) UnmarshalYAML(node *yaml.Node) error {
	*y = YearInput(node.Value)
	return nil
}

// Int returns the parsed year and whether it parsed.
func (y YearInput) Int() (int, bool) {
	return ParsePassoutYear(string(y))
}
