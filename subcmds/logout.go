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

type Logout struct {
	cmdutil.ClientFlags
}

func (c *Logout) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("logout", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "logout", fset, cli.CmdFunc(c.run)
}

func (c *Logout) Purpose() string {
	return "Logs the bot out and removes the saved session"
}

func (c *Logout) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	password, err := cmdutil.AdminPassword(server.EnvAdminPassword)
	if err != nil {
		return err
	}
	req := &api.LogoutRequest{AdminPassword: password}
	resp, err := cmdutil.Post[api.LogoutResponse](ctx, &c.ClientFlags, api.LogoutPath, req)
	if err != nil {
		return fmt.Errorf("could not logout: %w", err)
	}
	fmt.Fprintln(cli.Stdout(ctx), resp.Message)
	return nil
}
