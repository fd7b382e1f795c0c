// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bvk/steambot/api"
	"github.com/bvk/steambot/server"
)

func TestParseItem(t *testing.T) {
	item, err := parseItem("38350177021:570:2:3")
	if err != nil {
		t.Fatal(err)
	}
	if item.AssetID != "38350177021" || item.AppID != 570 || item.ContextID != "2" || item.Amount != "3" {
		t.Fatalf("unexpected item %+v", item)
	}

	item, err = parseItem("123")
	if err != nil {
		t.Fatal(err)
	}
	if item.AppID != 0 || len(item.ContextID) != 0 {
		t.Fatalf("unexpected defaults in %+v", item)
	}

	for _, bad := range []string{"", "abc", "1:2:3:4:5", "1::2"} {
		if _, err := parseItem(bad); err == nil {
			t.Errorf("want error for %q", bad)
		}
	}
}

func TestSetupArgs(t *testing.T) {
	if _, err := parseSetupArgs([]string{"coinbase-key=x"}); err == nil {
		t.Fatalf("want error for unknown key")
	}
	if _, err := parseSetupArgs([]string{"steam-user"}); err == nil {
		t.Fatalf("want error for missing value")
	}
	if _, err := parseSetupArgs([]string{"steam-user=a", "steam-user=b"}); err == nil {
		t.Fatalf("want error for conflicting values")
	}

	kvMap, err := parseSetupArgs([]string{"steam-user=mybot", "steam-password=pass", "admin-password=admin", "shared-secret=AAAAAAAAAAAAAAAAAAAAAAAAAAA="})
	if err != nil {
		t.Fatal(err)
	}
	secrets := new(server.Secrets)
	if err := applySetupArgs(secrets, kvMap); err != nil {
		t.Fatal(err)
	}
	if err := secrets.Check(); err != nil {
		t.Fatal(err)
	}
	if secrets.Steam.AccountName != "mybot" || secrets.AdminPassword != "admin" {
		t.Fatalf("unexpected secrets %+v", secrets)
	}

	if err := applySetupArgs(secrets, map[string]string{"shared-secret": "!!!"}); err == nil {
		t.Fatalf("want error for invalid shared secret")
	}
	if err := applySetupArgs(secrets, map[string]string{"pushover-app": "x"}); err == nil {
		t.Fatalf("want error for partial pushover keys")
	}
	if err := applySetupArgs(secrets, map[string]string{"telegram-token": "x"}); err == nil {
		t.Fatalf("want error for partial telegram secrets")
	}
	if err := applySetupArgs(secrets, map[string]string{"telegram-token": "x", "telegram-owner": "me"}); err != nil {
		t.Fatal(err)
	}
	if secrets.Telegram == nil || secrets.Telegram.OwnerID != "me" {
		t.Fatalf("telegram secrets are not updated")
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	status := &api.StatusResponse{
		IsLoggedIn:        true,
		SessionActive:     true,
		State:             "LoggedIn",
		AccountName:       "mybot",
		SessionAgeSeconds: 90,
	}
	health := &api.HealthResponse{PID: 42, NumGoroutines: 7}
	if err := printStatus(&buf, status, health); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"LoggedIn", "mybot", "1m30s", "42"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
	if strings.Contains(out, "Last Error") {
		t.Errorf("output has an empty last error row")
	}
}
