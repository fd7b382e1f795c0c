// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var strErrorCodeRe = regexp.MustCompile(`\((\d+)\)\s*$`)

// SendOffer submits a trade offer giving away the offer items to the
// partner. Success means the offer is accepted into the remote queue; it may
// still need a mobile confirmation.
func (c *Client) SendOffer(ctx context.Context, s *Session, offer *TradeOffer) (*TradeOfferResult, error) {
	if len(offer.Items) == 0 {
		return nil, fmt.Errorf("trade offer has no items: %w", os.ErrInvalid)
	}
	accountID, err := AccountID(offer.PartnerSteamID)
	if err != nil {
		return nil, err
	}

	jsOffer := &jsonTradeOffer{
		NewVersion: true,
		Version:    len(offer.Items) + 1,
		Me: jsonTradeOfferSide{
			Assets:   offer.Items,
			Currency: []any{},
		},
		Them: jsonTradeOfferSide{
			Assets:   []*Asset{},
			Currency: []any{},
		},
	}
	offerJSON, err := json.Marshal(jsOffer)
	if err != nil {
		return nil, fmt.Errorf("could not marshal trade offer: %w", err)
	}

	createParams := make(map[string]string)
	if len(offer.AccessToken) != 0 {
		createParams["trade_offer_access_token"] = offer.AccessToken
	}
	paramsJSON, err := json.Marshal(createParams)
	if err != nil {
		return nil, fmt.Errorf("could not marshal trade offer params: %w", err)
	}

	values := make(url.Values)
	values.Set("sessionid", s.CommunitySessionID)
	values.Set("serverid", "1")
	values.Set("partner", strconv.FormatUint(offer.PartnerSteamID, 10))
	values.Set("tradeoffermessage", offer.Message)
	values.Set("json_tradeoffer", string(offerJSON))
	values.Set("captcha", "")
	values.Set("trade_offer_create_params", string(paramsJSON))

	refValues := make(url.Values)
	refValues.Set("partner", strconv.FormatUint(uint64(accountID), 10))
	if len(offer.AccessToken) != 0 {
		refValues.Set("token", offer.AccessToken)
	}
	referer := c.communityEndpoint("/tradeoffer/new/", refValues)

	addrURL := c.communityEndpoint("/tradeoffer/new/send", nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addrURL.String(), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Referer", referer.String())
	req.Header.Set("Origin", c.communityURL.Scheme+"://"+c.communityURL.Host)

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classifyError(err)
	}

	result := new(sendOfferResponse)
	if jsErr := json.Unmarshal(data, result); jsErr != nil {
		slog.Warn("could not decode trade offer response", "status-code", resp.StatusCode, "body", string(data), "err", jsErr)
		if resp.StatusCode == http.StatusOK {
			// Community answers with a login page when cookies are stale.
			return nil, fmt.Errorf("send trade offer: unexpected response: %w", ErrSessionExpired)
		}
		return nil, statusError("send trade offer", resp)
	}

	if len(result.StrError) != 0 {
		code := EResultFail
		if m := strErrorCodeRe.FindStringSubmatch(result.StrError); m != nil {
			code = parseEResult(m[1])
		}
		return nil, newTradeError("send trade offer", code, result.StrError)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("send trade offer", resp)
	}
	if len(result.TradeOfferID) == 0 {
		return nil, fmt.Errorf("send trade offer: response has no offer id: %w", ErrRemoteRejected)
	}

	r := &TradeOfferResult{
		OfferID:                 result.TradeOfferID,
		NeedsMobileConfirmation: result.NeedsMobileConfirmation,
		NeedsEmailConfirmation:  result.NeedsEmailConfirmation,
	}
	return r, nil
}
