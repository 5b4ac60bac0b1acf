package chat

import (
	"encoding/json"
	"strings"
)

// Report is a structured medical summary the assistant sometimes emits inline
// in a message's text. It is derived on render and never persisted.
type Report struct {
	Summary   string   `json:"summary"`
	Diagnosis string   `json:"diagnosis"`
	Medicines []string `json:"medicines"`
}

// ParseReport attempts to interpret message text as a Report. It succeeds only
// when the trimmed text is brace-delimited, parses as JSON, and at least one
// of the three fields is present: a non-empty summary or diagnosis, or a
// medicines key carrying any non-null value, an empty list included. Anything
// else is plain text.
func ParseReport(text string) (*Report, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, false
	}

	var raw struct {
		Summary   string          `json:"summary"`
		Diagnosis string          `json:"diagnosis"`
		Medicines json.RawMessage `json:"medicines"`
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, false
	}

	medicinesPresent := len(raw.Medicines) > 0 && string(raw.Medicines) != "null"
	if raw.Summary == "" && raw.Diagnosis == "" && !medicinesPresent {
		return nil, false
	}

	report := Report{Summary: raw.Summary, Diagnosis: raw.Diagnosis}
	if medicinesPresent {
		if err := json.Unmarshal(raw.Medicines, &report.Medicines); err != nil {
			return nil, false
		}
	}
	return &report, true
}
