// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"errors"
	"os"
	"slices"
	"testing"
)

func TestSecretsCheck(t *testing.T) {
	valid := &Secrets{BotToken: "x", OwnerID: "owner", AdminID: "admin", OtherIDs: []string{"friend"}}
	if err := valid.Check(); err != nil {
		t.Fatal(err)
	}
	if got := valid.Receivers(); !slices.Equal(got, []string{"owner", "friend"}) {
		t.Fatalf("unexpected receivers %v", got)
	}

	invalid := []*Secrets{
		{OwnerID: "owner"},
		{BotToken: "x"},
		{BotToken: "x", OwnerID: "owner", OtherIDs: []string{""}},
		{BotToken: "x", OwnerID: "owner", AdminID: "admin", OtherIDs: []string{"admin"}},
		{BotToken: "x", OwnerID: "owner", OtherIDs: []string{"owner"}},
	}
	for i, s := range invalid {
		if err := s.Check(); !errors.Is(err, os.ErrInvalid) {
			t.Errorf("%d: want os.ErrInvalid, got %v", i, err)
		}
	}

	clone := valid.Clone()
	clone.OtherIDs[0] = "changed"
	if valid.OtherIDs[0] != "friend" {
		t.Fatalf("clone shares other users with the original")
	}
}
