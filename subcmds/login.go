// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/steambot/api"
	"github.com/bvk/steambot/server"
	"github.com/bvk/steambot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Login struct {
	cmdutil.ClientFlags

	code   string
	prompt bool
}

func (c *Login) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("login", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.code, "code", "", "Steam Guard one-time code")
	fset.BoolVar(&c.prompt, "prompt", false, "when true, prompts for the Steam Guard code")
	return "login", fset, cli.CmdFunc(c.run)
}

func (c *Login) Purpose() string {
	return "Logs the bot into its Steam account"
}

func (c *Login) Description() string {
	return `

Command "login" asks the steambot daemon to log into the bot's Steam account.
Daemon uses the saved session when one exists. Otherwise, a Steam Guard code
is required, unless the daemon is configured with the shared secret.

Admin password is read from the ADMIN_PASSWORD environment variable or
prompted from the terminal.

`
}

func (c *Login) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	code := c.code
	if len(code) == 0 && c.prompt {
		v, err := cmdutil.Prompt("Steam Guard code: ")
		if err != nil {
			return err
		}
		code = v
	}
	password, err := cmdutil.AdminPassword(server.EnvAdminPassword)
	if err != nil {
		return err
	}

	req := &api.AuthenticateRequest{
		OneTimeCode:   code,
		AdminPassword: password,
	}
	resp, err := cmdutil.Post[api.AuthenticateResponse](ctx, &c.ClientFlags, api.AuthenticatePath, req)
	if err != nil {
		return fmt.Errorf("could not login: %w", err)
	}
	fmt.Fprintln(cli.Stdout(ctx), resp.Message)
	return nil
}
