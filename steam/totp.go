// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

const authCodeAlphabet = "23456789BCDFGHJKMNPQRTVWXY"

// AuthCodePeriod is the validity period of a Steam Guard code.
const AuthCodePeriod = 30 * time.Second

// AuthCode returns the five character Steam Guard code for the given time
// using the base64 encoded shared secret of the mobile authenticator.
func AuthCode(sharedSecret string, at time.Time) (string, error) {
	if len(sharedSecret) == 0 {
		return "", ErrMissingSecret
	}
	key, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return "", fmt.Errorf("could not decode shared secret: %w", os.ErrInvalid)
	}

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(at.Unix()/int64(AuthCodePeriod/time.Second)))

	mac := hmac.New(sha1.New, key)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	full := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	code := make([]byte, 5)
	for i := range code {
		code[i] = authCodeAlphabet[full%uint32(len(authCodeAlphabet))]
		full /= uint32(len(authCodeAlphabet))
	}
	return string(code), nil
}
