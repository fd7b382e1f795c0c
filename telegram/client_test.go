// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bvkgo/kv/kvmemdb"
	"github.com/go-telegram/bot/models"
)

var testingSecrets *Secrets

func checkSecrets() bool {
	if testingSecrets != nil {
		return true
	}
	data, err := os.ReadFile("telegram-creds.json")
	if err != nil {
		return false
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return false
	}
	if err := s.Check(); err != nil {
		return false
	}
	testingSecrets = s
	return true
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	if !checkSecrets() {
		t.Skip("no credentials")
		return
	}

	db := kvmemdb.New()
	c, err := New(ctx, db, testingSecrets)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Fatal(err)
		}
	}()

	t.Logf("Authorized on account %s with owner %s", c.BotUserName(), c.OwnerUserName())

	c.SendMessage(ctx, time.Now(), "hello")
}

func TestGetCommand(t *testing.T) {
	c := &Client{
		secrets:    &Secrets{BotToken: "x", OwnerID: "owner"},
		commandMap: make(map[string]*Command),
	}
	c.commandMap["status"] = &Command{
		Purpose: "Prints bot status",
		Handler: func(context.Context, []string) error { return nil },
	}

	newUpdate := func(text string, length int) *models.Update {
		return &models.Update{
			Message: &models.Message{
				Text: text,
				Entities: []models.MessageEntity{
					{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: length},
				},
			},
		}
	}

	cmd, args, handler, err := c.getCommand(newUpdate("/status now please", 7))
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "status" || handler == nil || len(args) != 2 || args[0] != "now" {
		t.Fatalf("unexpected parse: cmd=%q args=%v", cmd, args)
	}

	if cmd, _, _, err := c.getCommand(newUpdate("/status@steambot", 16)); err != nil || cmd != "status" {
		t.Fatalf("want status command, got %q, %v", cmd, err)
	}
	if _, _, _, err := c.getCommand(newUpdate("/unknown", 8)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}
	if _, _, _, err := c.getCommand(&models.Update{}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid, got %v", err)
	}
	if _, _, _, err := c.getCommand(newUpdate("/s", 10)); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for out of range entity, got %v", err)
	}
}

func TestIsValidUser(t *testing.T) {
	c := &Client{secrets: &Secrets{BotToken: "x", OwnerID: "owner", AdminID: "admin", OtherIDs: []string{"friend"}}}
	for _, u := range []string{"owner", "admin", "friend"} {
		if !c.isValidUser(u) {
			t.Errorf("user %q must be valid", u)
		}
	}
	for _, u := range []string{"", "stranger"} {
		if c.isValidUser(u) {
			t.Errorf("user %q must not be valid", u)
		}
	}
}
