package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Reading is one timestamped heart-rate sample. It is never modified after
// it has been appended.
type Reading struct {
	// Timestamp in epoch seconds.
	Timestamp int64 `json:"timestamp"`
	BPM       int   `json:"bpm"`
}

// Profile is the opaque patient profile. The store does not validate its
// shape: "conditions" has been seen both as a list and as free text.
type Profile map[string]any

// Document is the whole persisted store content.
type Document struct {
	Profile    Profile   `json:"user_profile"`
	History    []Reading `json:"heart_rate_history"`
	MaxEntries int       `json:"max_entries"`
}

// Values returns the BPM column of the history, oldest first.
func (d *Document) Values() []int {
	out := make([]int, len(d.History))
	for i, r := range d.History {
		out[i] = r.BPM
	}
	return out
}

// Latest returns the newest reading.
func (d *Document) Latest() (Reading, bool) {
	if len(d.History) == 0 {
		return Reading{}, false
	}
	return d.History[len(d.History)-1], true
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Profile(t).Clone())
	case Profile:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Text renders a profile value for display. Lists are joined with ", ",
// whole numbers are printed without a fraction, and a missing key yields "".
func (p Profile) Text(key string) string {
	return formatValue(p[key])
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := formatValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+formatValue(t[k]))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// Int returns a numeric profile value such as "age".
func (p Profile) Int(key string) (int, bool) {
	switch t := p[key].(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}
