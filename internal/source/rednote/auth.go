package rednote

import "strings"

// AuthFailure classifies why a credential probe was rejected.
type AuthFailure string

// Credential failure classes derived from the source's error text.
const (
	AuthExpired      AuthFailure = "expired"
	AuthInsufficient AuthFailure = "insufficient_permission"
	AuthUnknown      AuthFailure = "unknown"
)

// ClassifyAuthFailure buckets a collaborator error message into a failure
// class. The source reports failures in mixed Chinese/English text, so both
// spellings are checked.
func ClassifyAuthFailure(msg string) AuthFailure {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "登录") || strings.Contains(lower, "login"):
		return AuthExpired
	case strings.Contains(msg, "权限") || strings.Contains(lower, "permission"):
		return AuthInsufficient
	default:
		return AuthUnknown
	}
}

// Reason renders a human-readable explanation for the failure class.
func (f AuthFailure) Reason() string {
	switch f {
	case AuthExpired:
		return "credential has expired, sign in again and copy a fresh one"
	case AuthInsufficient:
		return "credential lacks permission, make sure the account is fully signed in"
	default:
		return "credential was rejected by the source"
	}
}
