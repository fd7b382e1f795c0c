// Copyright (c) 2023 BVK Chaitanya

package pushover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

var testingKeys *Keys

func checkKeys() bool {
	if testingKeys != nil {
		return true
	}
	data, err := os.ReadFile("pushover-keys.json")
	if err != nil {
		return false
	}
	s := new(Keys)
	if err := json.Unmarshal(data, s); err != nil {
		return false
	}
	if err := s.Check(); err != nil {
		return false
	}
	testingKeys = s
	return true
}

func TestSendMessage(t *testing.T) {
	if !checkKeys() {
		t.Skip("no keys")
		return
	}

	c, err := New(testingKeys, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SendMessage(context.Background(), time.Now(), t.Name()); err != nil {
		t.Fatal(err)
	}
}

func TestSendMessageLocal(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if got["token"] == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":0,"errors":["application token is invalid"]}`))
			return
		}
		w.Write([]byte(`{"status":1,"request":"abc"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	c, err := New(&Keys{ApplicationKey: "app", UserKey: "user"}, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SendMessage(ctx, time.Unix(1700000000, 0), "session lost"); err != nil {
		t.Fatal(err)
	}
	if got["user"] != "user" || got["message"] != "session lost" || got["timestamp"] != float64(1700000000) {
		t.Fatalf("unexpected request body %v", got)
	}

	bad, err := New(&Keys{ApplicationKey: "bad", UserKey: "user"}, srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := bad.SendMessage(ctx, time.Now(), "x"); err == nil || !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("want send failure, got %v", err)
	}

	if _, err := New(&Keys{ApplicationKey: "app"}, ""); err == nil {
		t.Fatalf("want error for missing user key")
	}
}
