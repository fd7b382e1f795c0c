// Copyright (c) 2025 BVK Chaitanya

package steam

import "strconv"

// EResult is the result code used across Steam services.
type EResult int

const (
	EResultInvalid                         EResult = 0
	EResultOK                              EResult = 1
	EResultFail                            EResult = 2
	EResultNoConnection                    EResult = 3
	EResultInvalidPassword                 EResult = 5
	EResultLoggedInElsewhere               EResult = 6
	EResultInvalidParam                    EResult = 8
	EResultFileNotFound                    EResult = 9
	EResultBusy                            EResult = 10
	EResultInvalidState                    EResult = 11
	EResultAccessDenied                    EResult = 15
	EResultTimeout                         EResult = 16
	EResultServiceUnavailable              EResult = 20
	EResultNotLoggedOn                     EResult = 21
	EResultPending                         EResult = 22
	EResultLimitExceeded                   EResult = 25
	EResultRevoked                         EResult = 26
	EResultExpired                         EResult = 27
	EResultDuplicateRequest                EResult = 29
	EResultTryAnotherCM                    EResult = 48
	EResultAccountLogonDenied              EResult = 63
	EResultInvalidLoginAuthCode            EResult = 65
	EResultRateLimitExceeded               EResult = 84
	EResultAccountLoginDeniedNeedTwoFactor EResult = 85
	EResultItemDeleted                     EResult = 86
	EResultAccountLoginDeniedThrottle      EResult = 87
	EResultTwoFactorCodeMismatch           EResult = 88
)

var eresultNames = map[EResult]string{
	EResultInvalid:                         "Invalid",
	EResultOK:                              "OK",
	EResultFail:                            "Fail",
	EResultNoConnection:                    "NoConnection",
	EResultInvalidPassword:                 "InvalidPassword",
	EResultLoggedInElsewhere:               "LoggedInElsewhere",
	EResultInvalidParam:                    "InvalidParam",
	EResultFileNotFound:                    "FileNotFound",
	EResultBusy:                            "Busy",
	EResultInvalidState:                    "InvalidState",
	EResultAccessDenied:                    "AccessDenied",
	EResultTimeout:                         "Timeout",
	EResultServiceUnavailable:              "ServiceUnavailable",
	EResultNotLoggedOn:                     "NotLoggedOn",
	EResultPending:                         "Pending",
	EResultLimitExceeded:                   "LimitExceeded",
	EResultRevoked:                         "Revoked",
	EResultExpired:                         "Expired",
	EResultDuplicateRequest:                "DuplicateRequest",
	EResultTryAnotherCM:                    "TryAnotherCM",
	EResultAccountLogonDenied:              "AccountLogonDenied",
	EResultInvalidLoginAuthCode:            "InvalidLoginAuthCode",
	EResultRateLimitExceeded:               "RateLimitExceeded",
	EResultAccountLoginDeniedNeedTwoFactor: "AccountLoginDeniedNeedTwoFactor",
	EResultItemDeleted:                     "ItemDeleted",
	EResultAccountLoginDeniedThrottle:      "AccountLoginDeniedThrottle",
	EResultTwoFactorCodeMismatch:           "TwoFactorCodeMismatch",
}

func (v EResult) String() string {
	if s, ok := eresultNames[v]; ok {
		return s
	}
	return "EResult(" + strconv.Itoa(int(v)) + ")"
}

func parseEResult(s string) EResult {
	v, err := strconv.Atoi(s)
	if err != nil {
		return EResultInvalid
	}
	return EResult(v)
}
