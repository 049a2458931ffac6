package trust

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// OrgIDParam is the designated path segment carrying the organization id on
// organization-scoped routes.
const OrgIDParam = "org_id"

const orgIDQuery = "organizationId"

const bearerScheme = "Bearer"

// RequestInfo is the slice of router.Context the guard chain reads. Guards
// accept this narrow interface so tests and non-HTTP callers can feed them
// without a full router context.
type RequestInfo interface {
	Context() context.Context
	Header(key string) string
	Referer() string
	Param(key string, defaultValue ...string) string
	Query(key string, defaultValue ...string) string
}

var _ RequestInfo = router.Context(nil)

// IdentityContext is the outcome of the base identity stage: a validated
// login token bound to a live device and user.
type IdentityContext struct {
	Host   string
	Device *Device
	User   *User
	Claims *LoginClaims
}

// OrgContext refines IdentityContext with a confirmed organization
// membership.
type OrgContext struct {
	IdentityContext
	OrgID      uuid.UUID
	Membership *Membership
}

// AdminContext is an OrgContext whose membership role is Admin or better.
type AdminContext struct {
	OrgContext
}

// OwnerContext is an OrgContext whose membership role is Owner.
type OwnerContext struct {
	OrgContext
}

// GuardChain resolves caller identity and organizational role as an ordered
// pipeline. Each stage invokes the previous one and re-validates against
// persisted state instead of trusting the token alone; any failure
// short-circuits the request.
type GuardChain struct {
	codec  *TokenCodec
	repo   RepositoryManager
	cfg    Config
	logger Logger
}

// GuardChainOption customizes guard chain construction.
type GuardChainOption func(*GuardChain)

// WithGuardChainLogger overrides the default logger.
func WithGuardChainLogger(logger Logger) GuardChainOption {
	return func(g *GuardChain) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGuardChain wires the pipeline to its collaborators.
func NewGuardChain(codec *TokenCodec, repo RepositoryManager, cfg Config, opts ...GuardChainOption) *GuardChain {
	g := &GuardChain{
		codec:  codec,
		repo:   repo,
		cfg:    cfg,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Identity is stage one: bearer token extraction, login-purpose validation,
// device and user loads, and the security stamp check. Every failure mode
// collapses into the same generic invalid-session error; the real reason is
// only logged.
func (g *GuardChain) Identity(r RequestInfo) (*IdentityContext, error) {
	host := ResolveOrigin(g.cfg, r)

	raw, ok := bearerToken(r.Header("Authorization"))
	if !ok {
		return nil, g.invalidSession("no access token provided", nil)
	}

	claims, err := g.codec.DecodeLogin(raw)
	if err != nil {
		return nil, g.invalidSession("invalid claim", err)
	}

	deviceID, err := uuid.Parse(claims.Device)
	if err != nil {
		return nil, g.invalidSession("malformed device id", err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, g.invalidSession("malformed subject", err)
	}

	ctx := r.Context()

	device, err := g.repo.Devices().FindByUUID(ctx, deviceID)
	if err != nil {
		return nil, g.invalidSession("invalid device id", err)
	}

	user, err := g.repo.Users().FindByUUID(ctx, userID)
	if err != nil {
		return nil, g.invalidSession("device has no user associated", err)
	}

	if user.SecurityStamp != claims.SecurityStamp {
		return nil, g.invalidSession("invalid security stamp", nil)
	}

	return &IdentityContext{
		Host:   host,
		Device: device,
		User:   user,
		Claims: claims,
	}, nil
}

// Organization is stage two: it runs Identity, resolves the organization id
// from the path segment or the organizationId query value, and requires a
// confirmed membership row. Unlike stage one, the not-a-member and
// not-confirmed failures are distinct.
func (g *GuardChain) Organization(r RequestInfo) (*OrgContext, error) {
	identity, err := g.Identity(r)
	if err != nil {
		return nil, err
	}

	orgID, ok := resolveOrgID(r)
	if !ok {
		return nil, ErrOrgIDUnresolvable
	}

	membership, err := g.repo.Memberships().FindByUserAndOrg(r.Context(), identity.User.ID, orgID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotOrgMember
		}
		return nil, err
	}

	if membership.Status != MembershipConfirmed {
		return nil, ErrNotConfirmedMember
	}

	return &OrgContext{
		IdentityContext: *identity,
		OrgID:           orgID,
		Membership:      membership,
	}, nil
}

// Admin is stage three: Organization plus a role of Admin or better. The
// check is the same ordering comparison the owner tier uses.
func (g *GuardChain) Admin(r RequestInfo) (*AdminContext, error) {
	org, err := g.Organization(r)
	if err != nil {
		return nil, err
	}

	if !org.Membership.Role.AtLeast(OrgRoleAdmin) {
		return nil, ErrRequiresAdminRole
	}

	return &AdminContext{OrgContext: *org}, nil
}

// Owner is stage four: Organization plus the Owner role. Owner sits at the
// top of the ordering, so AtLeast(Owner) is an exact match.
func (g *GuardChain) Owner(r RequestInfo) (*OwnerContext, error) {
	org, err := g.Organization(r)
	if err != nil {
		return nil, err
	}

	if !org.Membership.Role.AtLeast(OrgRoleOwner) {
		return nil, ErrRequiresOwnerRole
	}

	return &OwnerContext{OrgContext: *org}, nil
}

func (g *GuardChain) invalidSession(reason string, cause error) error {
	if cause != nil {
		g.logger.Info("guard chain rejected request: %s: %v", reason, cause)
	} else {
		g.logger.Info("guard chain rejected request: %s", reason)
	}
	return ErrInvalidSession
}

func bearerToken(header string) (string, bool) {
	l := len(bearerScheme)
	if len(header) <= l+1 || !strings.EqualFold(header[:l], bearerScheme) || header[l] != ' ' {
		return "", false
	}

	token := strings.TrimSpace(header[l:])
	if token == "" {
		return "", false
	}

	return token, true
}

// resolveOrgID prefers the path segment whenever it is identifier-shaped,
// falling back to the query value.
func resolveOrgID(r RequestInfo) (uuid.UUID, bool) {
	if raw := r.Param(OrgIDParam); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}

	if raw := r.Query(orgIDQuery); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}

	return uuid.Nil, false
}
