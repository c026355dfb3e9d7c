package monitor

import "fmt"

// Status is the patient status derived from the latest reading.
type Status int

const (
	// StatusWaiting means the history is shorter than the minimum sample count.
	StatusWaiting Status = iota
	StatusNormal
	StatusBradycardia
	StatusTachycardia
	// StatusAnomaly means the model flagged the latest reading.
	StatusAnomaly
)

var statusNames = map[Status]string{
	StatusWaiting:     "waiting",
	StatusNormal:      "normal",
	StatusBradycardia: "bradycardia",
	StatusTachycardia: "tachycardia",
	StatusAnomaly:     "anomaly",
}

// String returns the lowercase status name.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	for k, v := range statusNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// Level is the alert level: 0 for no alert, 1 for a threshold crossing,
// 2 for a model anomaly.
func (s Status) Level() int {
	switch s {
	case StatusAnomaly:
		return 2
	case StatusBradycardia, StatusTachycardia:
		return 1
	default:
		return 0
	}
}

// Message is the human readable banner text.
func (s Status) Message() string {
	switch s {
	case StatusAnomaly:
		return "ALERT (level 2): unusual rhythm pattern detected by the model"
	case StatusTachycardia:
		return "ALERT (level 1): tachycardia detected"
	case StatusBradycardia:
		return "ALERT (level 1): bradycardia detected"
	case StatusNormal:
		return "Normal rhythm pattern"
	default:
		return "Waiting for data"
	}
}
