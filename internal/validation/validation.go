// Package validation checks patient profile input before it reaches the
// record store.
//
// The profile is a free-form JSON object. Keys are restricted to a safe
// identifier alphabet and the well-known fields name, age and conditions
// carry type and range rules. Unknown fields pass through unchecked.
package validation

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/store"
)

// Limits for profile input.
const (
	MaxKeyLength  = 64
	MaxNameLength = 200
	MinAge        = 0
	MaxAge        = 120
)

// =============================================================================
// Keys
// =============================================================================

// KeyRules defines the alphabet of profile keys.
type KeyRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
}

// DefaultKeyRules returns the rules applied to profile keys.
func DefaultKeyRules() KeyRules {
	return KeyRules{
		MinLength:    1,
		MaxLength:    MaxKeyLength,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// ValidateKey validates a profile key according to rules.
func ValidateKey(key string, rules KeyRules) error {
	if len(key) < rules.MinLength {
		return errors.NewInvalidValue("key", key, "too short")
	}
	if len(key) > rules.MaxLength {
		return errors.NewInvalidValue("key", key, "longer than "+strconv.Itoa(rules.MaxLength)+" bytes")
	}
	if strings.HasPrefix(key, ".") {
		return errors.NewInvalidValue("key", key, "cannot start with '.'")
	}

	for i, r := range key {
		if !isAllowedKeyChar(r, rules) {
			return errors.NewInvalidValue("key", key, "invalid character at position "+strconv.Itoa(i))
		}
	}
	return nil
}

func isAllowedKeyChar(r rune, rules KeyRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// =============================================================================
// Well-known fields
// =============================================================================

// ValidateName checks a patient name. The empty name is allowed.
func ValidateName(name string) error {
	if !utf8.ValidString(name) {
		return errors.NewInvalidValue("name", "", "not valid UTF-8")
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return errors.NewInvalidValue("name", n, "longer than "+strconv.Itoa(MaxNameLength)+" characters")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.NewInvalidValue("name", name, "contains control characters")
		}
	}
	return nil
}

// ValidateAge checks that age is a whole number of years in range.
func ValidateAge(age int) error {
	if age < MinAge || age > MaxAge {
		return errors.NewInvalidValue("age", age, "must be between 0 and 120")
	}
	return nil
}

// ParseAge parses and validates an age typed into a form.
func ParseAge(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.NewInvalidValue("age", s, "not a whole number")
	}
	return n, ValidateAge(n)
}

// SplitConditions turns comma separated text into a list of trimmed,
// non-empty conditions.
func SplitConditions(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// =============================================================================
// Profile
// =============================================================================

// ValidateProfile validates a partial profile as sent to MergeProfile.
// All problems are reported together.
func ValidateProfile(p store.Profile) error {
	errs := errors.NewValidationErrors()
	rules := DefaultKeyRules()

	for key, v := range p {
		errs.Add(ValidateKey(key, rules))

		switch key {
		case "name":
			s, ok := v.(string)
			if !ok {
				errs.Add(errors.NewInvalidValue("name", v, "must be a string"))
				continue
			}
			errs.Add(ValidateName(s))
		case "age":
			errs.Add(validateAgeValue(v))
		case "conditions":
			errs.Add(validateConditions(v))
		}
	}
	return errs.Err()
}

func validateAgeValue(v any) error {
	switch t := v.(type) {
	case int:
		return ValidateAge(t)
	case int64:
		return ValidateAge(int(t))
	case float64:
		if t != math.Trunc(t) {
			return errors.NewInvalidValue("age", t, "not a whole number")
		}
		return ValidateAge(int(t))
	default:
		return errors.NewInvalidValue("age", v, "must be a number")
	}
}

func validateConditions(v any) error {
	switch t := v.(type) {
	case string, []string:
		return nil
	case []any:
		for _, item := range t {
			if _, ok := item.(string); !ok {
				return errors.NewInvalidValue("conditions", item, "entries must be strings")
			}
		}
		return nil
	default:
		return errors.NewInvalidValue("conditions", v, "must be a list or text")
	}
}
