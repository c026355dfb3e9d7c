package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTelegramSend(t *testing.T) {
	var (
		gotPath string
		gotBody sendMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	n := NewTelegram(TelegramConfig{APIURL: srv.URL + "/", Token: "123:ABC", ChatID: "42"})
	if !n.Send(context.Background(), "*hi*") {
		t.Fatal("Send = false")
	}

	if gotPath != "/bot123:ABC/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	want := sendMessage{ChatID: "42", Text: "*hi*", ParseMode: "Markdown"}
	if gotBody != want {
		t.Errorf("body = %+v, want %+v", gotBody, want)
	}
}

func TestTelegramFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"ok":false,"description":"Unauthorized"}`)
		}},
		{"rejected", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"ok":false,"description":"chat not found"}`)
		}},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			n := NewTelegram(TelegramConfig{
				APIURL:  srv.URL,
				Token:   "t",
				ChatID:  "c",
				Timeout: 50 * time.Millisecond,
			})
			if n.Send(context.Background(), "x") {
				t.Error("Send = true")
			}
		})
	}
}

func TestTelegramUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	n := NewTelegram(TelegramConfig{APIURL: url, Token: "t", ChatID: "c"})
	if n.Send(context.Background(), "x") {
		t.Error("Send = true for a closed server")
	}
}

func TestNewFallsBackToNop(t *testing.T) {
	if _, ok := New(TelegramConfig{Token: "t"}).(Nop); !ok {
		t.Error("missing chat id should yield Nop")
	}
	if _, ok := New(TelegramConfig{Token: "t", ChatID: "c"}).(*Telegram); !ok {
		t.Error("full config should yield *Telegram")
	}
	if (Nop{}).Send(context.Background(), "x") {
		t.Error("Nop.Send = true")
	}
}
