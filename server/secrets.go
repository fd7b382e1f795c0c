// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bvk/steambot/pushover"
	"github.com/bvk/steambot/steam"
	"github.com/bvk/steambot/telegram"
)

// Environment variables that override empty secrets file fields.
const (
	EnvSteamUsername       = "STEAM_USERNAME"
	EnvSteamPassword       = "STEAM_PASSWORD"
	EnvSteamSharedSecret   = "STEAM_SHARED_SECRET"
	EnvSteamIdentitySecret = "STEAM_IDENTITY_SECRET"
	EnvAdminPassword       = "ADMIN_PASSWORD"
)

type Secrets struct {
	Steam *steam.Credentials `json:"steam"`

	// AdminPassword guards the authenticate and logout operations.
	AdminPassword string `json:"admin_password"`

	Pushover *pushover.Keys    `json:"pushover,omitempty"`
	Telegram *telegram.Secrets `json:"telegram,omitempty"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("could not parse secrets file %q: %w", fpath, err)
	}
	return s, nil
}

// ApplyEnv fills the empty steam credentials and admin password fields from
// the environment.
func (v *Secrets) ApplyEnv() {
	if v.Steam == nil {
		v.Steam = new(steam.Credentials)
	}
	fill := func(dst *string, key string) {
		if len(*dst) == 0 {
			*dst = os.Getenv(key)
		}
	}
	fill(&v.Steam.AccountName, EnvSteamUsername)
	fill(&v.Steam.Password, EnvSteamPassword)
	fill(&v.Steam.SharedSecret, EnvSteamSharedSecret)
	fill(&v.Steam.IdentitySecret, EnvSteamIdentitySecret)
	fill(&v.AdminPassword, EnvAdminPassword)
}

func (v *Secrets) Check() error {
	if v.Steam == nil {
		return fmt.Errorf("steam credentials are required: %w", os.ErrInvalid)
	}
	if err := v.Steam.Check(); err != nil {
		return fmt.Errorf("invalid steam credentials: %w", err)
	}
	if len(v.AdminPassword) == 0 {
		return fmt.Errorf("admin password cannot be empty: %w", os.ErrInvalid)
	}
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	if v.Pushover != nil {
		if err := v.Pushover.Check(); err != nil {
			return err
		}
	}
	return nil
}
