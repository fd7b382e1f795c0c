// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/bvk/steambot/ctxutil"
	"github.com/bvk/steambot/pushover"
	"github.com/bvk/steambot/server"
	"github.com/bvk/steambot/steam"
	"github.com/bvk/steambot/subcmds/cmdutil"
	"github.com/bvk/steambot/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Setup struct {
	cmdutil.DataFlags

	skipTesting bool
}

func (c *Setup) Purpose() string {
	return "Setup prints and/or configures steambot daemon"
}

func (c *Setup) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("setup", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "setup", fset, cli.CmdFunc(c.run)
}

func (c *Setup) Description() string {
	return `

Command "setup" helps users configure the Steam account credentials, the admin
password and the notification keys for Pushover and Telegram services. Command
prints current config when run without any arguments.

STEAM PARAMETERS

Steam account name and password are required. Mobile authenticator secrets are
optional. Shared secret lets the daemon generate Steam Guard codes itself and
identity secret is required to confirm the trade offers:

  $ steambot setup steam-user=mybot steam-password=xxxx shared-secret=base64... identity-secret=base64...

ADMIN PASSWORD

Admin password is required for the login and logout operations:

  $ steambot setup admin-password=yyyy

PUSHOVER PARAMETERS

Pushover keys are optional. They are required to receive notifications to the
mobile phones. They can be configured as follows:

  $ steambot setup pushover-app=awja5ue...ito7svf pushover-user=uscjs2...tvp4kv

TELEGRAM PARAMETERS

Telegram bot token and the owner's user name are optional. They enable the
Telegram bot for notifications and commands:

  $ steambot setup telegram-token=1234:abcd telegram-owner=myname [telegram-admin=othername]
`
}

var setupKeys = []string{
	"steam-user",
	"steam-password",
	"shared-secret",
	"identity-secret",
	"admin-password",
	"pushover-app",
	"pushover-user",
	"telegram-token",
	"telegram-owner",
	"telegram-admin",
}

// parseSetupArgs parses key=value arguments into a map.
func parseSetupArgs(args []string) (map[string]string, error) {
	kvMap := make(map[string]string)
	for _, arg := range args {
		before, after, found := strings.Cut(arg, "=")
		if !found {
			return nil, fmt.Errorf("invalid config argument %q", arg)
		}
		if !slices.Contains(setupKeys, before) {
			return nil, fmt.Errorf("invalid/unrecognized config item key %q", before)
		}
		if v, ok := kvMap[before]; ok && v != after {
			return nil, fmt.Errorf("config item key %q is found with different values", before)
		}
		kvMap[before] = after
	}
	return kvMap, nil
}

// applySetupArgs updates the secrets with the parsed config values.
func applySetupArgs(secrets *server.Secrets, kvMap map[string]string) error {
	if secrets.Steam == nil {
		secrets.Steam = new(steam.Credentials)
	}
	if v, ok := kvMap["steam-user"]; ok {
		secrets.Steam.AccountName = v
	}
	if v, ok := kvMap["steam-password"]; ok {
		secrets.Steam.Password = v
	}
	if v, ok := kvMap["shared-secret"]; ok {
		if len(v) != 0 {
			if _, err := steam.AuthCode(v, time.Now()); err != nil {
				return fmt.Errorf("invalid shared secret: %w", err)
			}
		}
		secrets.Steam.SharedSecret = v
	}
	if v, ok := kvMap["identity-secret"]; ok {
		secrets.Steam.IdentitySecret = v
	}
	if v, ok := kvMap["admin-password"]; ok {
		secrets.AdminPassword = v
	}

	pushoverApp := kvMap["pushover-app"]
	pushoverUser := kvMap["pushover-user"]
	if len(pushoverUser) != 0 || len(pushoverApp) != 0 {
		if len(pushoverApp) == 0 || len(pushoverUser) == 0 {
			return fmt.Errorf(`both "pushover-app" and "pushover-user" parameters are required`)
		}
		secrets.Pushover = &pushover.Keys{
			ApplicationKey: pushoverApp,
			UserKey:        pushoverUser,
		}
	}

	telegramToken := kvMap["telegram-token"]
	telegramOwner := kvMap["telegram-owner"]
	if len(telegramToken) != 0 || len(telegramOwner) != 0 {
		if len(telegramToken) == 0 || len(telegramOwner) == 0 {
			return fmt.Errorf(`both "telegram-token" and "telegram-owner" parameters are required`)
		}
		secrets.Telegram = &telegram.Secrets{
			BotToken: telegramToken,
			OwnerID:  telegramOwner,
			AdminID:  kvMap["telegram-admin"],
		}
		if err := secrets.Telegram.Check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Setup) run(ctx context.Context, args []string) error {
	fpath, err := c.SecretsPath()
	if err != nil {
		return err
	}
	secrets, err := server.SecretsFromFile(fpath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if len(args) == 0 {
			return fmt.Errorf("steambot is not configured")
		}
	}

	if len(args) == 0 {
		js, _ := json.MarshalIndent(secrets, "", "  ")
		fmt.Fprintf(cli.Stdout(ctx), "%s\n", js)
		return nil
	}

	if secrets == nil {
		secrets = &server.Secrets{}
	}

	kvMap, err := parseSetupArgs(args)
	if err != nil {
		return err
	}
	if err := applySetupArgs(secrets, kvMap); err != nil {
		return err
	}

	if _, ok := kvMap["pushover-app"]; ok && !c.skipTesting {
		// Attempt to send a message with pushover to validate the keys.
		client, err := pushover.New(secrets.Pushover, "" /* endpoint */)
		if err != nil {
			return err
		}
		if err := client.SendMessage(ctx, time.Now(), "Test message from Pushover config setup; please ignore."); err != nil {
			return err
		}
	}

	if _, ok := kvMap["telegram-token"]; ok && !c.skipTesting {
		if err := testTelegram(ctx, secrets.Telegram); err != nil {
			return err
		}
	}

	js, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(fpath, js, os.FileMode(0600)); err != nil {
		return err
	}
	return nil
}

func testTelegram(ctx context.Context, secrets *telegram.Secrets) error {
	fmt.Println("Start a chat with telegram bot and then press any key")
	if err := waitForKey(); err != nil {
		return err
	}

	client, err := telegram.New(ctx, kvmemdb.New(), secrets)
	if err != nil {
		return err
	}
	defer client.Close()

	ctxutil.Sleep(ctx, time.Second)
	return client.SendMessage(ctx, time.Now(), "Test message from Telegram config setup; please ignore.")
}

func waitForKey() error {
	// switch stdin into 'raw' mode
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	b := make([]byte, 1)
	_, err = os.Stdin.Read(b)
	return err
}
