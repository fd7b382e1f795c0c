// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// FlexString accepts both JSON strings and numbers.
type FlexString string

func (v *FlexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("value must be a string or a number: %w", err)
	}
	*v = FlexString(n.String())
	return nil
}

// TradeURLRegexp is the accepted form of trade-exchange urls. The access
// token is optional for recipients with public inventories.
var TradeURLRegexp = regexp.MustCompile(`^https://steamcommunity\.com/tradeoffer/new/\?partner=\d+(&token=[a-zA-Z0-9_-]+)?$`)

// Normalize moves legacy field values into their current names.
func (r *TradeRequest) Normalize() {
	if len(r.Items) == 0 && len(r.LegacyItems) != 0 {
		r.Items = r.LegacyItems
	}
	if len(r.RecipientTradeURL) == 0 && len(r.LegacyTradeURL) != 0 {
		r.RecipientTradeURL = r.LegacyTradeURL
	}
	r.LegacyItems, r.LegacyTradeURL = nil, ""
	r.RecipientTradeURL = strings.TrimSpace(r.RecipientTradeURL)
}

// CheckTradeURL verifies that the recipient url matches the fixed
// trade-exchange pattern.
func (r *TradeRequest) CheckTradeURL() error {
	if !TradeURLRegexp.MatchString(r.RecipientTradeURL) {
		return fmt.Errorf("recipient trade url %q doesn't match the trade offer url pattern: %w", r.RecipientTradeURL, os.ErrInvalid)
	}
	return nil
}
