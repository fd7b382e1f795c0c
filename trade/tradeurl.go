// Copyright (c) 2025 BVK Chaitanya

package trade

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/bvk/steambot/steam"
)

// TradeURL is the decoded form of a trade-exchange url.
type TradeURL struct {
	// Partner is the 32-bit account id of the recipient.
	Partner uint32

	// Token is the trade offer access token. It is optional for partners
	// that are friends with the bot account.
	Token string
}

// ParseTradeURL decodes a trade-exchange url of the form
// .../tradeoffer/new/?partner=<digits>&token=<token>.
func ParseTradeURL(s string) (*TradeURL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("could not parse trade url: %w", ErrInvalidTradeURL)
	}
	values := u.Query()
	partner := values.Get("partner")
	if len(partner) == 0 {
		return nil, fmt.Errorf("trade url has no partner: %w", ErrInvalidTradeURL)
	}
	for _, r := range partner {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("trade url partner %q is not numeric: %w", partner, ErrInvalidTradeURL)
		}
	}
	v, err := strconv.ParseUint(partner, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("trade url partner %q is out of range: %w", partner, ErrInvalidTradeURL)
	}
	turl := &TradeURL{
		Partner: uint32(v),
		Token:   values.Get("token"),
	}
	return turl, nil
}

// SteamID returns the 64-bit steam id of the partner.
func (v *TradeURL) SteamID() uint64 {
	return steam.SteamID64(v.Partner)
}

func (v *TradeURL) String() string {
	values := make(url.Values)
	values.Set("partner", strconv.FormatUint(uint64(v.Partner), 10))
	if len(v.Token) != 0 {
		values.Set("token", v.Token)
	}
	u := steam.CommunityURL
	u.Path = "/tradeoffer/new/"
	u.RawQuery = values.Encode()
	return u.String()
}
