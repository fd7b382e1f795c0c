// Copyright (c) 2023 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/steambot/subcmds"
	"github.com/visvasity/cli"
)

func main() {
	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Setup),
		new(subcmds.Status),
		new(subcmds.Login),
		new(subcmds.Logout),
		new(subcmds.Watch),
		new(subcmds.SendOffer),
		new(subcmds.AuthCode),
	}
	if err := cli.Run(context.Background(), cmds, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
