// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

// maxTagLength is the number of tag bytes included in a confirmation
// signature.
const maxTagLength = 32

// KeyFunc returns a confirmation signature for the tag along with the
// timestamp it was computed for.
type KeyFunc func(tag string) (timestamp int64, key string, err error)

// Sign returns the confirmation signature for the tag at the given unix
// timestamp. Secret is the base64 encoded identity secret of the mobile
// authenticator.
//
// Signature is base64(HMAC-SHA1(secret, timestamp || tag)) where the
// timestamp is encoded as 8 big-endian bytes and the tag is truncated to 32
// bytes.
func Sign(secret string, timestamp int64, tag string) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	if len(tag) == 0 {
		return "", fmt.Errorf("confirmation tag cannot be empty: %w", os.ErrInvalid)
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("could not decode identity secret: %w", os.ErrInvalid)
	}
	if len(tag) > maxTagLength {
		tag = tag[:maxTagLength]
	}

	buf := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(buf, uint64(timestamp))
	buf = append(buf, tag...)

	mac := hmac.New(sha1.New, key)
	mac.Write(buf)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// DeviceID returns the mobile authenticator device id derived from the Steam
// id, in the form accepted by the confirmation endpoints.
func DeviceID(steamID uint64) string {
	sum := sha1.Sum([]byte(strconv.FormatUint(steamID, 10)))
	h := hex.EncodeToString(sum[:])
	return fmt.Sprintf("android:%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32])
}
