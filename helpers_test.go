package trust_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	trust "github.com/vaultguard/go-trust"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    premium BOOLEAN NOT NULL DEFAULT FALSE,
    security_stamp TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

	sqliteCreateDevices = `CREATE TABLE devices (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);`

	sqliteCreateMemberships = `CREATE TABLE memberships (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    organization_id TEXT NOT NULL,
    role INTEGER NOT NULL,
    status INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
    CONSTRAINT uq_memberships_user_org UNIQUE (user_id, organization_id)
);`

	sqliteCreateEmergencyAccesses = `CREATE TABLE emergency_accesses (
    id TEXT NOT NULL PRIMARY KEY,
    grantor_id TEXT NOT NULL,
    grantee_id TEXT,
    email TEXT,
    key_encrypted TEXT,
    atype INTEGER NOT NULL DEFAULT 0,
    status INTEGER NOT NULL DEFAULT 0,
    wait_time_days INTEGER NOT NULL DEFAULT 7,
    recovery_initiated_at TIMESTAMP NULL,
    last_notification_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (grantor_id) REFERENCES users (id) ON DELETE CASCADE
);`
)

func setupTestRepo(t *testing.T) (*bun.DB, trust.RepositoryManager) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	for _, stmt := range []string{
		"PRAGMA foreign_keys = ON;",
		sqliteCreateUsers,
		sqliteCreateDevices,
		sqliteCreateMemberships,
		sqliteCreateEmergencyAccesses,
	} {
		_, err = bunDB.Exec(stmt)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	repo := trust.NewRepositoryManager(bunDB)
	repo.MustValidate()

	return bunDB, repo
}

func seedUser(t *testing.T, db *bun.DB, name, email string) *trust.User {
	t.Helper()

	now := time.Now()
	user := &trust.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		EmailVerified: true,
		SecurityStamp: uuid.New().String(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)

	return user
}

func seedDevice(t *testing.T, db *bun.DB, userID uuid.UUID) *trust.Device {
	t.Helper()

	now := time.Now()
	device := &trust.Device{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "test device",
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.NewInsert().Model(device).Exec(context.Background())
	require.NoError(t, err)

	return device
}

func seedMembership(t *testing.T, db *bun.DB, userID, orgID uuid.UUID, role trust.OrgRole, status trust.MembershipStatus) *trust.Membership {
	t.Helper()

	now := time.Now()
	membership := &trust.Membership{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := db.NewInsert().Model(membership).Exec(context.Background())
	require.NoError(t, err)

	return membership
}

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// testSigningKey is shared across tests; generating RSA keys per test is
// the slowest thing the suite does.
func testSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = key
	})

	return testKey
}

func newTestCodec(t *testing.T, origin string, opts ...trust.TokenCodecOption) *trust.TokenCodec {
	t.Helper()
	return trust.NewTokenCodecFromKey(testSigningKey(t), origin, opts...)
}

type mockConfig struct {
	domain      string
	privKeyPath string
	pubKeyPath  string
	ipHeader    string
	jobInterval time.Duration
	retries     int
}

func (c mockConfig) GetDomain() string             { return c.domain }
func (c mockConfig) GetPrivateKeyPath() string     { return c.privKeyPath }
func (c mockConfig) GetPublicKeyPath() string      { return c.pubKeyPath }
func (c mockConfig) GetIPHeader() string           { return c.ipHeader }
func (c mockConfig) GetJobInterval() time.Duration { return c.jobInterval }
func (c mockConfig) GetConnectionRetries() int     { return c.retries }

type mockRequest struct {
	headers map[string]string
	params  map[string]string
	query   map[string]string
	referer string
}

func (m *mockRequest) Context() context.Context { return context.Background() }

func (m *mockRequest) Header(key string) string {
	return m.headers[key]
}

func (m *mockRequest) Referer() string { return m.referer }

func (m *mockRequest) Param(key string, defaultValue ...string) string {
	if v, ok := m.params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockRequest) Query(key string, defaultValue ...string) string {
	if v, ok := m.query[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

type mailCall struct {
	kind    string
	to      string
	payload string
}

type mockMailer struct {
	mu    sync.Mutex
	calls []mailCall
	err   error
}

func (m *mockMailer) SendRecoveryAutoApproved(_ context.Context, grantorEmail, granteeName, accessType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mailCall{kind: "auto_approved", to: grantorEmail, payload: granteeName + "/" + accessType})
	return m.err
}

func (m *mockMailer) SendRecoveryApproved(_ context.Context, granteeEmail, grantorName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mailCall{kind: "approved", to: granteeEmail, payload: grantorName})
	return m.err
}

func (m *mockMailer) SendRecoveryReminder(_ context.Context, grantorEmail, granteeName, accessType string, waitTimeDays int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mailCall{kind: "reminder", to: grantorEmail, payload: granteeName + "/" + accessType})
	return m.err
}

func (m *mockMailer) callsOfKind(kind string) []mailCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []mailCall
	for _, c := range m.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type capturedEvents struct {
	mu     sync.Mutex
	events []trust.ActivityEvent
}

func (c *capturedEvents) Record(_ context.Context, event trust.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturedEvents) ofType(et trust.ActivityEventType) []trust.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []trust.ActivityEvent
	for _, e := range c.events {
		if e.EventType == et {
			out = append(out, e)
		}
	}
	return out
}
