// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bvk/steambot/steam"
	"github.com/bvk/steambot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type AuthCode struct {
	cmdutil.DataFlags
}

func (c *AuthCode) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("auth-code", flag.ContinueOnError)
	c.DataFlags.SetFlags(fset)
	return "auth-code", fset, cli.CmdFunc(c.run)
}

func (c *AuthCode) Purpose() string {
	return "Prints the current Steam Guard code from the shared secret"
}

func (c *AuthCode) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}
	secrets, err := c.LoadSecrets()
	if err != nil {
		return err
	}
	now := time.Now()
	code, err := steam.AuthCode(secrets.Steam.SharedSecret, now)
	if err != nil {
		return fmt.Errorf("could not generate steam guard code: %w", err)
	}
	left := steam.AuthCodePeriod - time.Duration(now.Unix()%int64(steam.AuthCodePeriod/time.Second))*time.Second
	fmt.Fprintf(cli.Stdout(ctx), "%s (valid for %s)\n", code, left)
	return nil
}
