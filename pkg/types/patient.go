package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Patient represents a registered patient as returned by the clinic backend.
// Timestamp fields stay raw strings because their shape varies between backend
// deployments; EffectiveVisitDate applies the documented fallback chain.
type Patient struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
	LastVisitDate string `json:"last_visit_date,omitempty"`
	TotalVisits   int    `json:"total_visits,omitempty"`
}

// rawPatient tolerates the payload variants the backend is known to emit:
// Mongo-style "_id", numeric or quoted age.
type rawPatient struct {
	ID            string  `json:"id"`
	MongoID       string  `json:"_id"`
	Name          string  `json:"name"`
	Age           flexInt `json:"age"`
	Gender        string  `json:"gender"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	LastVisitDate string  `json:"last_visit_date"`
	TotalVisits   flexInt `json:"total_visits"`
}

// UnmarshalJSON normalizes backend payload variants into the canonical shape.
func (p *Patient) UnmarshalJSON(data []byte) error {
	var raw rawPatient
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ID = firstNonEmpty(raw.MongoID, raw.ID)
	p.Name = raw.Name
	p.Age = int(raw.Age)
	p.Gender = raw.Gender
	p.CreatedAt = raw.CreatedAt
	p.UpdatedAt = raw.UpdatedAt
	p.LastVisitDate = raw.LastVisitDate
	p.TotalVisits = int(raw.TotalVisits)
	return nil
}

// EffectiveVisitDate returns the first non-empty of last-visit, updated and
// created timestamps. Empty means the backend sent no usable date at all.
func (p *Patient) EffectiveVisitDate() string {
	return firstNonEmpty(p.LastVisitDate, p.UpdatedAt, p.CreatedAt)
}

// EffectiveVisitTime parses EffectiveVisitDate against the known backend
// layouts. ok is false when no date is present or none parses.
func (p *Patient) EffectiveVisitTime() (time.Time, bool) {
	raw := p.EffectiveVisitDate()
	if raw == "" {
		return time.Time{}, false
	}
	return ParseClinicTime(raw)
}

// flexInt decodes a JSON number or a quoted number; anything else is zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
