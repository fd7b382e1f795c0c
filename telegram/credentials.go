// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"fmt"
	"os"
	"slices"
)

// Secrets holds the Telegram bot token and the user names allowed to talk to
// the steambot operator bot. Owner, admin and other users can run commands.
// Bot state alerts are delivered to the owner and other users.
type Secrets struct {
	BotToken string `json:"token"`

	OwnerID string `json:"owner"`

	AdminID string `json:"admin"`

	OtherIDs []string `json:"others"`
}

func (v *Secrets) Check() error {
	if len(v.BotToken) == 0 {
		return fmt.Errorf("telegram bot token cannot be empty: %w", os.ErrInvalid)
	}
	if len(v.OwnerID) == 0 {
		return fmt.Errorf("telegram owner cannot be empty: %w", os.ErrInvalid)
	}
	if slices.Contains(v.OtherIDs, "") {
		return fmt.Errorf("empty user name in other users: %w", os.ErrInvalid)
	}
	if len(v.AdminID) != 0 && slices.Contains(v.OtherIDs, v.AdminID) {
		return fmt.Errorf("admin %q should not be repeated in other users: %w", v.AdminID, os.ErrInvalid)
	}
	if slices.Contains(v.OtherIDs, v.OwnerID) {
		return fmt.Errorf("owner %q should not be repeated in other users: %w", v.OwnerID, os.ErrInvalid)
	}
	return nil
}

// IsAllowed reports if the user can run bot commands.
func (v *Secrets) IsAllowed(user string) bool {
	if len(user) == 0 {
		return false
	}
	return user == v.OwnerID || user == v.AdminID || slices.Contains(v.OtherIDs, user)
}

// Receivers returns the users who receive alert messages, owner first.
func (v *Secrets) Receivers() []string {
	return append([]string{v.OwnerID}, v.OtherIDs...)
}

func (v *Secrets) Clone() *Secrets {
	return &Secrets{
		BotToken: v.BotToken,
		OwnerID:  v.OwnerID,
		AdminID:  v.AdminID,
		OtherIDs: slices.Clone(v.OtherIDs),
	}
}
