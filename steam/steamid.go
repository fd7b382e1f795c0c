// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"fmt"
	"math"
	"os"
	"strconv"
)

// SteamIDBase is the offset between a 32-bit account id (the partner value in
// trade URLs) and an individual account's 64-bit Steam id.
const SteamIDBase uint64 = 76561197960265728

// SteamID64 converts an account id into the 64-bit Steam id.
func SteamID64(accountID uint32) uint64 {
	return uint64(accountID) + SteamIDBase
}

// AccountID converts a 64-bit Steam id of an individual account into its
// account id.
func AccountID(steamID uint64) (uint32, error) {
	if steamID < SteamIDBase || steamID-SteamIDBase > math.MaxUint32 {
		return 0, fmt.Errorf("steam id %d is not an individual account id: %w", steamID, os.ErrInvalid)
	}
	return uint32(steamID - SteamIDBase), nil
}

// ParseSteamID parses a decimal 64-bit Steam id.
func ParseSteamID(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse steam id %q: %w", s, os.ErrInvalid)
	}
	if _, err := AccountID(v); err != nil {
		return 0, err
	}
	return v, nil
}
