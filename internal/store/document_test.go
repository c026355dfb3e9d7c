package store

import "testing"

func TestProfileText(t *testing.T) {
	p := Profile{
		"name":       "Ana",
		"age":        float64(65),
		"weight":     72.5,
		"list":       []any{"Hypertension", "Diabetes"},
		"strings":    []string{"a", "b"},
		"flag":       true,
		"conditions": "free text",
	}

	tests := map[string]string{
		"name":       "Ana",
		"age":        "65",
		"weight":     "72.5",
		"list":       "Hypertension, Diabetes",
		"strings":    "a, b",
		"flag":       "true",
		"conditions": "free text",
		"missing":    "",
	}
	for key, want := range tests {
		if got := p.Text(key); got != want {
			t.Errorf("Text(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestProfileInt(t *testing.T) {
	p := Profile{"a": 65, "b": float64(70), "c": " 80 ", "d": "old", "e": []any{}}

	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"a", 65, true},
		{"b", 70, true},
		{"c", 80, true},
		{"d", 0, false},
		{"e", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := p.Int(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Int(%q) = %d, %v; want %d, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDocumentValues(t *testing.T) {
	d := &Document{History: []Reading{{1, 70}, {2, 80}}}
	if got := d.Values(); len(got) != 2 || got[0] != 70 || got[1] != 80 {
		t.Errorf("Values = %v", got)
	}
	if r, ok := d.Latest(); !ok || r.BPM != 80 {
		t.Errorf("Latest = %v, %v", r, ok)
	}
	if _, ok := (&Document{}).Latest(); ok {
		t.Error("Latest on empty document")
	}
}
