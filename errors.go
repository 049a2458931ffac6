package trust

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeTokenExpired     = "TOKEN_EXPIRED"
	textCodeTokenMalformed   = "TOKEN_MALFORMED"
	textCodeTokenPurpose     = "TOKEN_WRONG_PURPOSE"
	textCodeInvalidSession   = "INVALID_SESSION"
	textCodeOrgIDUnresolved  = "ORG_ID_UNRESOLVED"
	textCodeNotOrgMember     = "NOT_ORG_MEMBER"
	textCodeMemberUnconfirmd = "MEMBERSHIP_NOT_CONFIRMED"
	textCodeRequiresAdmin    = "REQUIRES_ADMIN_ROLE"
	textCodeRequiresOwner    = "REQUIRES_OWNER_ROLE"
)

// ErrTokenExpired is returned when a token's expiry, minus leeway, has passed.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers signature, encoding, and not-before failures.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenWrongPurpose is returned when a well-formed token carries the
// issuer of another purpose. It is deliberately indistinguishable from a
// malformed token in its outward message.
var ErrTokenWrongPurpose = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenPurpose).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidSession is the single outward failure for the identity stage.
// Missing token, unknown device, unknown user, and stale security stamp all
// collapse into it so callers can not probe which check failed.
var ErrInvalidSession = goerrors.New("invalid session", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidSession).
	WithCode(goerrors.CodeUnauthorized)

// ErrOrgIDUnresolvable is returned when neither the path segment nor the
// organizationId query value parses as a UUID.
var ErrOrgIDUnresolvable = goerrors.New("error getting the organization id", goerrors.CategoryBadInput).
	WithTextCode(textCodeOrgIDUnresolved).
	WithCode(goerrors.CodeBadRequest)

// ErrNotOrgMember is returned when no membership row exists for the caller.
var ErrNotOrgMember = goerrors.New("the current user isn't member of the organization", goerrors.CategoryAuthz).
	WithTextCode(textCodeNotOrgMember).
	WithCode(goerrors.CodeForbidden)

// ErrNotConfirmedMember is returned when a membership exists but has not
// been confirmed.
var ErrNotConfirmedMember = goerrors.New("the current user isn't confirmed member of the organization", goerrors.CategoryAuthz).
	WithTextCode(textCodeMemberUnconfirmd).
	WithCode(goerrors.CodeForbidden)

// ErrRequiresAdminRole is returned by the admin guard tier.
var ErrRequiresAdminRole = goerrors.New("you need to be Admin or Owner to call this endpoint", goerrors.CategoryAuthz).
	WithTextCode(textCodeRequiresAdmin).
	WithCode(goerrors.CodeForbidden)

// ErrRequiresOwnerRole is returned by the owner guard tier.
var ErrRequiresOwnerRole = goerrors.New("you need to be Owner to call this endpoint", goerrors.CategoryAuthz).
	WithTextCode(textCodeRequiresOwner).
	WithCode(goerrors.CodeForbidden)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == textCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
