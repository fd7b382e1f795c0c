// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/bvk/steambot/api"
	"github.com/bvk/steambot/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type SendOffer struct {
	cmdutil.ClientFlags

	tradeURL string
	message  string
}

func (c *SendOffer) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("send-offer", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.StringVar(&c.tradeURL, "trade-url", "", "recipient's trade offer url")
	fset.StringVar(&c.message, "message", "", "message to include in the offer")
	return "send-offer", fset, cli.CmdFunc(c.run)
}

func (c *SendOffer) Purpose() string {
	return "Sends a trade offer with the bot's items"
}

func (c *SendOffer) Description() string {
	return `

Command "send-offer" sends a trade offer with the given items from the bot's
inventory to the recipient. Every argument is an item in the form
assetid[:appid[:contextid[:amount]]]. App id is inferred by the daemon when it
is not given.

  $ steambot send-offer -trade-url="https://steamcommunity.com/tradeoffer/new/?partner=12345&token=abcd" 38350177021:570

`
}

// parseItem parses an assetid[:appid[:contextid[:amount]]] argument.
func parseItem(arg string) (*api.TradeItem, error) {
	parts := strings.Split(arg, ":")
	if len(parts) > 4 {
		return nil, fmt.Errorf("item %q has too many fields", arg)
	}
	for _, p := range parts {
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			return nil, fmt.Errorf("item %q must only have numeric fields", arg)
		}
	}
	item := &api.TradeItem{AssetID: api.FlexString(parts[0])}
	if len(parts) > 1 {
		appID, _ := strconv.Atoi(parts[1])
		item.AppID = appID
	}
	if len(parts) > 2 {
		item.ContextID = api.FlexString(parts[2])
	}
	if len(parts) > 3 {
		item.Amount = api.FlexString(parts[3])
	}
	return item, nil
}

func (c *SendOffer) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one item argument is required")
	}
	if len(c.tradeURL) == 0 {
		return fmt.Errorf("trade-url flag is required")
	}

	req := &api.TradeRequest{
		RecipientTradeURL: c.tradeURL,
		Message:           c.message,
	}
	for _, arg := range args {
		item, err := parseItem(arg)
		if err != nil {
			return err
		}
		req.Items = append(req.Items, item)
	}

	resp, err := cmdutil.Post[api.TradeResponse](ctx, &c.ClientFlags, api.TradePath, req)
	if err != nil {
		return fmt.Errorf("could not send trade offer: %w", err)
	}
	fmt.Fprintf(cli.Stdout(ctx), "offer %s with %d item(s) is %s\n", resp.TradeOfferID, resp.ItemCount, resp.Status)
	return nil
}
