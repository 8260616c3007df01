package document

import (
	"fmt"
	"sort"
)

// Period is a year-month reporting bucket.
type Period struct {
	Year  int
	Month int
}

// ParsePeriodKey parses the canonical state-store key form "YYYY-MM".
func ParsePeriodKey(key string) (Period, error) {
	var p Period
	if _, err := fmt.Sscanf(key, "%d-%d", &p.Year, &p.Month); err != nil {
		return Period{}, fmt.Errorf("invalid period key %q: %w", key, err)
	}
	if p.Month < 1 || p.Month > 12 {
		return Period{}, fmt.Errorf("invalid period key %q: month out of range", key)
	}
	return p, nil
}

// Key returns the sortable state-store key form, e.g. "2024-01".
func (p Period) Key() string {
	return fmt.Sprintf("%d-%02d", p.Year, p.Month)
}

// String returns the display form used on documents, e.g. "01/2024".
func (p Period) String() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

// MarshalJSON encodes the period in its display form ("MM/YYYY").
func (p Period) MarshalJSON() ([]byte, error) {
	if p.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON accepts the display form ("MM/YYYY") or an empty string.
func (p *Period) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == `""` || s == "null" {
		*p = Period{}
		return nil
	}
	var month, year int
	if _, err := fmt.Sscanf(s, `"%d/%d"`, &month, &year); err != nil {
		return fmt.Errorf("invalid period %s: %w", s, err)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid period %s: month out of range", s)
	}
	*p = Period{Year: year, Month: month}
	return nil
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Before reports whether p precedes q chronologically.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// PeriodRange returns every period from start to end inclusive, in order.
func PeriodRange(start, end Period) []Period {
	var out []Period
	for p := start; !end.Before(p); p = p.Next() {
		out = append(out, p)
	}
	return out
}

// SortedPeriodKeys returns the keys of a period-keyed map in chronological
// order. Keys compare correctly as strings because the key form is YYYY-MM.
func SortedPeriodKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
