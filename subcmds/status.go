// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bvk/steambot/api"
	"github.com/bvk/steambot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.ClientFlags

	health bool
}

func (c *Status) Purpose() string {
	return "Status prints the bot's login state and session details"
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.health, "health", false, "when true, also prints the daemon process health")
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	if !c.health {
		status, err := cmdutil.Get[api.StatusResponse](ctx, &c.ClientFlags, api.StatusPath)
		if err != nil {
			return fmt.Errorf("could not get bot status: %w", err)
		}
		return printStatus(cli.Stdout(ctx), status, nil)
	}

	health, err := cmdutil.Get[api.HealthResponse](ctx, &c.ClientFlags, api.HealthPath)
	if err != nil {
		return fmt.Errorf("could not get daemon health: %w", err)
	}
	return printStatus(cli.Stdout(ctx), health.Bot, health)
}

func printStatus(w io.Writer, status *api.StatusResponse, health *api.HealthResponse) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintf(tw, "State\t%s\n", status.State)
	fmt.Fprintf(tw, "Logged In\t%t\n", status.IsLoggedIn)
	fmt.Fprintf(tw, "Session Active\t%t\n", status.SessionActive)
	if len(status.AccountName) != 0 {
		fmt.Fprintf(tw, "Account\t%s\n", status.AccountName)
	}
	if len(status.SteamIdentity) != 0 {
		fmt.Fprintf(tw, "Steam ID\t%s\n", status.SteamIdentity)
	}
	if len(status.PersonaName) != 0 {
		fmt.Fprintf(tw, "Persona\t%s\n", status.PersonaName)
	}
	if status.IsLoggedIn {
		fmt.Fprintf(tw, "Session Age\t%s\n", time.Duration(status.SessionAgeSeconds)*time.Second)
	}
	if status.CooldownRemainingMs > 0 {
		fmt.Fprintf(tw, "Login Cooldown\t%s\n", time.Duration(status.CooldownRemainingMs)*time.Millisecond)
	}
	if status.LastLoginAttempt != nil {
		fmt.Fprintf(tw, "Last Login Attempt\t%s\n", status.LastLoginAttempt.Local().Format(time.RFC3339))
	}
	if status.ReconnectingSince != nil {
		fmt.Fprintf(tw, "Reconnecting Since\t%s\n", status.ReconnectingSince.Local().Format(time.RFC3339))
	}
	if len(status.LastError) != 0 {
		fmt.Fprintf(tw, "Last Error\t%s\n", status.LastError)
	}
	if health != nil {
		fmt.Fprintf(tw, "PID\t%d\n", health.PID)
		fmt.Fprintf(tw, "Uptime\t%s\n", time.Duration(health.UptimeSeconds)*time.Second)
		fmt.Fprintf(tw, "RSS\t%.1fMiB\n", float64(health.RSSBytes)/(1<<20))
		fmt.Fprintf(tw, "CPU\t%.1f%%\n", health.CPUPercent)
		fmt.Fprintf(tw, "Goroutines\t%d\n", health.NumGoroutines)
	}
	return tw.Flush()
}
