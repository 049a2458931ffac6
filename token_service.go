package trust

import (
	"crypto/rsa"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenLeeway is the fixed clock-skew tolerance applied to expiry and
// not-before validation.
const TokenLeeway = 30 * time.Second

var loginScope = []string{"api", "offline_access"}
var loginAmr = []string{"Application"}

// TokenCodec signs and verifies purpose-scoped RS256 tokens. The key pair
// is loaded once at construction; there is no degraded mode without it.
type TokenCodec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	origin     string
	now        func() time.Time
	logger     Logger
}

// TokenCodecOption customizes codec construction.
type TokenCodecOption func(*TokenCodec)

// WithTokenCodecClock injects a custom clock (useful for tests).
func WithTokenCodecClock(clock func() time.Time) TokenCodecOption {
	return func(tc *TokenCodec) {
		if clock != nil {
			tc.now = clock
		}
	}
}

// WithTokenCodecLogger overrides the default logger.
func WithTokenCodecLogger(logger Logger) TokenCodecOption {
	return func(tc *TokenCodec) {
		if logger != nil {
			tc.logger = logger
		}
	}
}

// NewTokenCodec loads the RSA key pair from the configured PEM files.
// Callers treat an error here as fatal at startup.
func NewTokenCodec(cfg Config, opts ...TokenCodecOption) (*TokenCodec, error) {
	privPEM, err := os.ReadFile(cfg.GetPrivateKeyPath())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read private RSA key").
			WithMetadata(map[string]any{"path": cfg.GetPrivateKeyPath()})
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse private RSA key")
	}

	pubPEM, err := os.ReadFile(cfg.GetPublicKeyPath())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read public RSA key").
			WithMetadata(map[string]any{"path": cfg.GetPublicKeyPath()})
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse public RSA key")
	}

	return newTokenCodec(privateKey, publicKey, cfg.GetDomain(), opts...), nil
}

// NewTokenCodecFromKey builds a codec from an in-memory key pair. The
// public key is derived from the private one.
func NewTokenCodecFromKey(key *rsa.PrivateKey, origin string, opts ...TokenCodecOption) *TokenCodec {
	return newTokenCodec(key, &key.PublicKey, origin, opts...)
}

func newTokenCodec(priv *rsa.PrivateKey, pub *rsa.PublicKey, origin string, opts ...TokenCodecOption) *TokenCodec {
	tc := &TokenCodec{
		privateKey: priv,
		publicKey:  pub,
		origin:     origin,
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(tc)
		}
	}

	return tc
}

// Origin returns the deployment origin baked into issuer strings.
func (tc *TokenCodec) Origin() string {
	return tc.origin
}

// registered builds the shared claim set for a purpose. Every purpose gets
// its own issuer and fixed validity window.
func (tc *TokenCodec) registered(purpose TokenPurpose, subject string) jwt.RegisteredClaims {
	now := tc.now()
	return jwt.RegisteredClaims{
		Issuer:    purpose.IssuerFor(tc.origin),
		Subject:   subject,
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(purpose.Validity())),
	}
}

func (tc *TokenCodec) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signed, err := token.SignedString(tc.privateKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// IssueLogin mints a login token for the user on the given device. The
// membership slice feeds the per-role organization id lists; only confirmed
// memberships count.
func (tc *TokenCodec) IssueLogin(user *User, device *Device, memberships []*Membership) (string, error) {
	claims := &LoginClaims{
		RegisteredClaims: tc.registered(PurposeLogin, user.ID.String()),
		Premium:          user.Premium,
		Name:             user.Name,
		Email:            user.Email,
		EmailVerified:    user.EmailVerified,
		OrgOwner:         []string{},
		OrgAdmin:         []string{},
		OrgUser:          []string{},
		OrgManager:       []string{},
		SecurityStamp:    user.SecurityStamp,
		Device:           device.ID.String(),
		Scope:            loginScope,
		Amr:              loginAmr,
	}

	for _, m := range memberships {
		if m == nil || m.Status != MembershipConfirmed {
			continue
		}
		orgID := m.OrganizationID.String()
		switch m.Role {
		case OrgRoleOwner:
			claims.OrgOwner = append(claims.OrgOwner, orgID)
		case OrgRoleAdmin:
			claims.OrgAdmin = append(claims.OrgAdmin, orgID)
		case OrgRoleManager:
			claims.OrgManager = append(claims.OrgManager, orgID)
		case OrgRoleUser:
			claims.OrgUser = append(claims.OrgUser, orgID)
		}
	}

	return tc.sign(claims)
}

// IssueInvite mints an invite token for the given recipient.
func (tc *TokenCodec) IssueInvite(userID uuid.UUID, email string, orgID, membershipID, invitedByEmail *string) (string, error) {
	claims := &InviteClaims{
		RegisteredClaims: tc.registered(PurposeInvite, userID.String()),
		Email:            email,
		OrgID:            orgID,
		MembershipID:     membershipID,
		InvitedByEmail:   invitedByEmail,
	}
	return tc.sign(claims)
}

// IssueDelete mints a delete-account confirmation token.
func (tc *TokenCodec) IssueDelete(userID uuid.UUID) (string, error) {
	return tc.sign(&DeleteClaims{RegisteredClaims: tc.registered(PurposeDelete, userID.String())})
}

// IssueVerifyEmail mints an email-verification token.
func (tc *TokenCodec) IssueVerifyEmail(userID uuid.UUID) (string, error) {
	return tc.sign(&VerifyEmailClaims{RegisteredClaims: tc.registered(PurposeVerifyEmail, userID.String())})
}

// IssueAdmin mints a short-lived admin-session token.
func (tc *TokenCodec) IssueAdmin() (string, error) {
	return tc.sign(&AdminClaims{RegisteredClaims: tc.registered(PurposeAdmin, AdminPanelSubject)})
}

// decode verifies signature, expiry (with leeway), not-before, and the
// purpose-bound issuer, in that trust order. A signature-valid token minted
// for another purpose fails the issuer check and is never decoded into the
// caller's claim type.
func (tc *TokenCodec) decode(raw string, purpose TokenPurpose, claims jwt.Claims) error {
	raw = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			tc.logger.Error("TokenCodec decode encountered unexpected signing method: %v", t.Header["alg"])
			return nil, goerrors.New("unexpected signing method", goerrors.CategoryAuth)
		}
		return tc.publicKey, nil
	},
		jwt.WithIssuer(purpose.IssuerFor(tc.origin)),
		jwt.WithLeeway(TokenLeeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(tc.now),
	)

	if err != nil {
		switch {
		case goerrors.Is(err, jwt.ErrTokenExpired):
			return ErrTokenExpired
		case goerrors.Is(err, jwt.ErrTokenInvalidIssuer):
			return ErrTokenWrongPurpose.WithMetadata(map[string]any{"expected_purpose": string(purpose)})
		default:
			return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	if !token.Valid {
		return ErrTokenMalformed
	}

	return nil
}

// DecodeLogin validates a token against the login purpose.
func (tc *TokenCodec) DecodeLogin(raw string) (*LoginClaims, error) {
	claims := &LoginClaims{}
	if err := tc.decode(raw, PurposeLogin, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeInvite validates a token against the invite purpose.
func (tc *TokenCodec) DecodeInvite(raw string) (*InviteClaims, error) {
	claims := &InviteClaims{}
	if err := tc.decode(raw, PurposeInvite, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeDelete validates a token against the delete purpose.
func (tc *TokenCodec) DecodeDelete(raw string) (*DeleteClaims, error) {
	claims := &DeleteClaims{}
	if err := tc.decode(raw, PurposeDelete, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeVerifyEmail validates a token against the verify-email purpose.
func (tc *TokenCodec) DecodeVerifyEmail(raw string) (*VerifyEmailClaims, error) {
	claims := &VerifyEmailClaims{}
	if err := tc.decode(raw, PurposeVerifyEmail, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// DecodeAdmin validates a token against the admin-session purpose.
func (tc *TokenCodec) DecodeAdmin(raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := tc.decode(raw, PurposeAdmin, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
