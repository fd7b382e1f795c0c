// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Heartbeat verifies that the web session cookies are still accepted by the
// community site.
func (c *Client) Heartbeat(ctx context.Context, s *Session) error {
	resp := new(clientJSTokenResponse)
	if err := communityGetJSON(ctx, c, "clientjstoken", c.communityEndpoint("/chat/clientjstoken", nil), resp); err != nil {
		return err
	}
	if !resp.LoggedIn {
		return fmt.Errorf("community reports the session is logged out: %w", ErrSessionExpired)
	}
	if id, err := ParseSteamID(resp.SteamID); err == nil && id != s.SteamID {
		return fmt.Errorf("community session belongs to %d instead of %d: %w", id, s.SteamID, ErrSessionExpired)
	}
	return nil
}

// PersonaName returns the public display name for the Steam id.
func (c *Client) PersonaName(ctx context.Context, steamID uint64) (string, error) {
	values := make(url.Values)
	values.Set("xml", "1")
	addrURL := c.communityEndpoint("/profiles/"+strconv.FormatUint(steamID, 10), values)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addrURL.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("profile", resp)
	}

	var profile struct {
		XMLName     xml.Name `xml:"profile"`
		SteamID64   string   `xml:"steamID64"`
		PersonaName string   `xml:"steamID"`
	}
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return "", fmt.Errorf("could not decode profile xml: %w", ErrTransientNetwork)
	}
	return profile.PersonaName, nil
}
