// Copyright (c) 2025 BVK Chaitanya

package steam

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when the remote service rejects the
	// password, the one-time code or the saved session material.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTransientNetwork is returned for failures that are expected to go
	// away on retry.
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrTimeout is returned when a network call exceeds its time budget. It
	// is retried like ErrTransientNetwork.
	ErrTimeout = errors.New("timeout")

	// ErrRemoteRejected is returned when the remote service denies a request
	// with a specific result code.
	ErrRemoteRejected = errors.New("rejected by remote service")

	// ErrSessionExpired is returned when the web session cookies are no
	// longer accepted.
	ErrSessionExpired = errors.New("web session expired")

	// ErrMissingSecret is returned when a signature is requested without a
	// configured secret.
	ErrMissingSecret = errors.New("secret is not configured")
)

// IsTransient returns true if the error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientNetwork) || errors.Is(err, ErrTimeout)
}

// Subcodes for RemoteError values, used by the operator interfaces to render
// specific guidance.
const (
	SubcodeTradeHold            = "trade_hold"
	SubcodeOfferLimitExceeded   = "offer_limit_exceeded"
	SubcodeConfirmationRequired = "confirmation_required"
	SubcodeItemsUnavailable     = "items_unavailable"
	SubcodeAccessDenied         = "access_denied"
	SubcodeRateLimited          = "rate_limited"
	SubcodeInvalidCredentials   = "invalid_credentials"
	SubcodeUnknown              = "unknown"
)

// RemoteError holds a failure result reported by the remote service.
type RemoteError struct {
	// Op is the remote operation name.
	Op string

	EResult EResult

	// Message is the human-readable message from the remote service, if any.
	Message string

	kind error
}

func (e *RemoteError) Error() string {
	if len(e.Message) != 0 {
		return fmt.Sprintf("%s: %s (eresult %d %s)", e.Op, e.Message, e.EResult, e.EResult)
	}
	return fmt.Sprintf("%s: eresult %d %s", e.Op, e.EResult, e.EResult)
}

// Unwrap returns the error class (one of ErrInvalidCredentials,
// ErrTransientNetwork or ErrRemoteRejected).
func (e *RemoteError) Unwrap() error {
	return e.kind
}

// Subcode returns a stable short name for the failure reason.
func (e *RemoteError) Subcode() string {
	msg := strings.ToLower(e.Message)
	switch {
	case strings.Contains(msg, "hold") || strings.Contains(msg, "escrow") || strings.Contains(msg, "trade ban") ||
		strings.Contains(msg, "mobile authenticator"):
		return SubcodeTradeHold
	case strings.Contains(msg, "confirm"):
		return SubcodeConfirmationRequired
	}

	switch e.EResult {
	case EResultLimitExceeded:
		return SubcodeOfferLimitExceeded
	case EResultRevoked, EResultItemDeleted:
		return SubcodeItemsUnavailable
	case EResultAccessDenied:
		return SubcodeAccessDenied
	case EResultRateLimitExceeded, EResultAccountLoginDeniedThrottle:
		return SubcodeRateLimited
	}
	if errors.Is(e.kind, ErrInvalidCredentials) {
		return SubcodeInvalidCredentials
	}
	return SubcodeUnknown
}

// newAuthError classifies result codes from the authentication endpoints.
func newAuthError(op string, code EResult, msg string) *RemoteError {
	var kind error
	switch code {
	case EResultInvalidPassword, EResultAccessDenied, EResultRevoked, EResultExpired,
		EResultInvalidLoginAuthCode, EResultTwoFactorCodeMismatch,
		EResultAccountLogonDenied, EResultAccountLoginDeniedNeedTwoFactor,
		EResultFileNotFound:
		kind = ErrInvalidCredentials
	case EResultFail, EResultNoConnection, EResultBusy, EResultTimeout,
		EResultServiceUnavailable, EResultTryAnotherCM,
		EResultRateLimitExceeded, EResultAccountLoginDeniedThrottle:
		kind = ErrTransientNetwork
	default:
		kind = ErrRemoteRejected
	}
	return &RemoteError{Op: op, EResult: code, Message: msg, kind: kind}
}

// newTradeError classifies result codes from the trade offer endpoints. Trade
// holds, offer limits and permission failures are terminal.
func newTradeError(op string, code EResult, msg string) *RemoteError {
	var kind error
	switch code {
	case EResultFail, EResultNoConnection, EResultBusy, EResultTimeout, EResultServiceUnavailable:
		kind = ErrTransientNetwork
	case EResultNotLoggedOn:
		kind = ErrSessionExpired
	default:
		kind = ErrRemoteRejected
	}
	e := &RemoteError{Op: op, EResult: code, Message: msg, kind: kind}
	// A hold message is terminal even when it is reported with a generic code.
	if kind != ErrRemoteRejected && e.Subcode() == SubcodeTradeHold {
		e.kind = ErrRemoteRejected
	}
	return e
}
