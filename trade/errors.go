// Copyright (c) 2025 BVK Chaitanya

package trade

import "errors"

var (
	ErrEmptyOffer = errors.New("trade offer has no items")

	ErrInvalidTradeURL = errors.New("invalid trade url")

	ErrInvalidItem = errors.New("invalid trade offer item")
)
