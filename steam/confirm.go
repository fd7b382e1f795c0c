// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

func (c *Client) confirmationValues(s *Session, keyf KeyFunc, tag string) (url.Values, error) {
	timestamp, key, err := keyf(tag)
	if err != nil {
		return nil, fmt.Errorf("could not sign confirmation request for tag %q: %w", tag, err)
	}
	values := make(url.Values)
	values.Set("p", DeviceID(s.SteamID))
	values.Set("a", strconv.FormatUint(s.SteamID, 10))
	values.Set("k", key)
	values.Set("t", strconv.FormatInt(timestamp, 10))
	values.Set("m", "react")
	values.Set("tag", tag)
	return values, nil
}

// Confirmations lists the pending mobile confirmations. Key function is
// invoked synchronously to sign the request.
func (c *Client) Confirmations(ctx context.Context, s *Session, keyf KeyFunc) ([]*Confirmation, error) {
	values, err := c.confirmationValues(s, keyf, "conf")
	if err != nil {
		return nil, err
	}
	resp := new(confirmationListResponse)
	if err := communityGetJSON(ctx, c, "getlist", c.communityEndpoint("/mobileconf/getlist", values), resp); err != nil {
		return nil, err
	}
	if resp.NeedAuth {
		return nil, fmt.Errorf("confirmation list requires authentication: %w", ErrSessionExpired)
	}
	if !resp.Success {
		return nil, fmt.Errorf("could not list confirmations (%s): %w", resp.Message, ErrRemoteRejected)
	}

	var confs []*Confirmation
	for _, v := range resp.Conf {
		confs = append(confs, &Confirmation{
			ID:        v.ID.String(),
			Nonce:     v.Nonce.String(),
			CreatorID: v.CreatorID.String(),
			Type:      v.Type,
			TypeName:  v.TypeName,
			Headline:  v.Headline,
		})
	}
	return confs, nil
}

// AcceptConfirmation approves a pending mobile confirmation.
func (c *Client) AcceptConfirmation(ctx context.Context, s *Session, keyf KeyFunc, conf *Confirmation) error {
	values, err := c.confirmationValues(s, keyf, "allow")
	if err != nil {
		return err
	}
	values.Set("op", "allow")
	values.Set("cid", conf.ID)
	values.Set("ck", conf.Nonce)

	resp := new(confirmationOpResponse)
	if err := communityGetJSON(ctx, c, "ajaxop", c.communityEndpoint("/mobileconf/ajaxop", values), resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("could not accept confirmation %s (%s): %w", conf.ID, resp.Message, ErrRemoteRejected)
	}
	return nil
}
