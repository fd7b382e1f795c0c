// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bvk/steambot/bot"
	"github.com/bvk/steambot/telegram"
	"github.com/visvasity/cli"
)

func (s *Server) AddTelegramCommand(ctx context.Context, name, purpose string, handler telegram.CmdFunc) error {
	if s.telegramClient != nil {
		return s.telegramClient.AddCommand(ctx, name, purpose, handler)
	}
	return nil // Ignored
}

func (s *Server) addTelegramCommands(ctx context.Context) error {
	if err := s.AddTelegramCommand(ctx, "status", "Prints the Steam session status", s.statusTelegramCmd); err != nil {
		return err
	}
	if err := s.AddTelegramCommand(ctx, "login", "Logs into Steam with an optional one-time code", s.loginTelegramCmd); err != nil {
		return err
	}
	if err := s.AddTelegramCommand(ctx, "logout", "Logs out of Steam and clears the saved session", s.logoutTelegramCmd); err != nil {
		return err
	}
	return nil
}

func formatStatus(st *bot.Status) string {
	var text string
	switch {
	case st.IsLoggedIn() && len(st.PersonaName) != 0:
		text = fmt.Sprintf("%s as %s (%s) for %s", st.State, st.PersonaName, st.AccountName, st.SessionAge.Round(time.Second))
	case st.IsLoggedIn():
		text = fmt.Sprintf("%s as %s for %s", st.State, st.AccountName, st.SessionAge.Round(time.Second))
	default:
		text = st.State.String()
	}
	if st.CooldownRemaining > 0 {
		text += fmt.Sprintf("; next login after %s", st.CooldownRemaining.Round(time.Second))
	}
	if len(st.LastError) != 0 {
		text += "; last error: " + st.LastError
	}
	return text
}

func (s *Server) statusTelegramCmd(ctx context.Context, args []string) error {
	fmt.Fprint(cli.Stdout(ctx), formatStatus(s.manager.Status()))
	return nil
}

func (s *Server) loginTelegramCmd(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("login takes at most one (one-time code) argument")
	}
	var code string
	if len(args) == 1 {
		code = args[0]
	}
	if err := s.manager.Login(ctx, code); err != nil {
		if errors.Is(err, bot.ErrCodeRequired) {
			return fmt.Errorf("no saved session; send /login CODE with a Steam Guard code")
		}
		return err
	}
	fmt.Fprint(cli.Stdout(ctx), formatStatus(s.manager.Status()))
	return nil
}

func (s *Server) logoutTelegramCmd(ctx context.Context, args []string) error {
	if err := s.manager.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprint(cli.Stdout(ctx), "Logged out")
	return nil
}
