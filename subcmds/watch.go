// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bvk/steambot/api"
	"github.com/bvk/steambot/subcmds/cmdutil"
	"github.com/gorilla/websocket"
	"github.com/visvasity/cli"
)

type Watch struct {
	cmdutil.ClientFlags
}

func (c *Watch) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("watch", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "watch", fset, cli.CmdFunc(c.run)
}

func (c *Watch) Purpose() string {
	return "Watch prints the bot's state changes as they happen"
}

func (c *Watch) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("this command takes no arguments")
	}

	addr := c.WebsocketURL(api.EventsPath)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr.String(), nil)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", addr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	}()

	stdout := cli.Stdout(ctx)
	for {
		var msg api.EventMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("could not read event: %w", err)
		}
		at := msg.At.Local().Format(time.DateTime)
		if msg.Status != nil {
			fmt.Fprintf(stdout, "%s state=%s account=%q loggedIn=%t\n", at, msg.Status.State, msg.Status.AccountName, msg.Status.IsLoggedIn)
		}
		if len(msg.Alert) != 0 {
			fmt.Fprintf(stdout, "%s ALERT: %s\n", at, msg.Alert)
		}
	}
}
