package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/internal/testdb"
	"github.com/ferremas/backoffice/internal/users"
	pkgAuth "github.com/ferremas/backoffice/pkg/auth"
	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
)

var jwtCfg = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "ferremas-backoffice",
	ExpirationMinutes: 30,
}

type memoryLimiter struct {
	counts map[string]int64
	resets int
}

func (m *memoryLimiter) RateLimitCount(_ context.Context, scope string) (int64, error) {
	return m.counts[scope], nil
}

func (m *memoryLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

func (m *memoryLimiter) ResetRateLimit(_ context.Context, scope string) error {
	delete(m.counts, scope)
	m.resets++
	return nil
}

type fixture struct {
	conn    *gorm.DB
	svc     Service
	limiter *memoryLimiter
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := testdb.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	repo := users.NewRepository(conn)
	accounts, err := users.NewService(users.ServiceParams{
		Repo:     repo,
		Password: config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1},
		Logger:   logg,
	})
	require.NoError(t, err)

	limiter := &memoryLimiter{counts: map[string]int64{}}
	now := time.Now().UTC().Truncate(time.Second)
	svc, err := NewService(ServiceParams{
		Accounts:  accounts,
		UserRepo:  repo,
		Limiter:   limiter,
		JWTConfig: jwtCfg,
		RateLimit: config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginLimit: 3},
		Logger:    logg,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, limiter: limiter, now: now}
}

func (f *fixture) register(t *testing.T, username string) *TokenResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterIssuesCustomerToken(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t, "ana")

	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 1800, resp.ExpiresIn)
	assert.Equal(t, enums.RoleCustomer, resp.User.Role)

	claims, err := pkgAuth.ParseAccessToken(jwtCfg, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, enums.RoleCustomer, claims.Role)

	_, err = f.svc.Register(context.Background(), RegisterRequest{Username: "ana", Email: "x@example.com", Password: "s3cret-pass"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestLoginSucceedsAndRecordsLastLogin(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t, "ana")

	resp, err := f.svc.Login(context.Background(), LoginRequest{Username: " ANA ", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)
	assert.True(t, resp.User.LastLoginAt.Equal(f.now))
	assert.Equal(t, 1, f.limiter.resets)

	claims, err := pkgAuth.ParseAccessToken(jwtCfg, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)
}

func TestLoginBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ana")

	_, err := f.svc.Login(context.Background(), LoginRequest{Username: "ana", Password: "wrong"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = f.svc.Login(context.Background(), LoginRequest{Username: "nobody", Password: "wrong"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	assert.EqualValues(t, 1, f.limiter.counts["login:ana"])
	assert.EqualValues(t, 1, f.limiter.counts["login:nobody"])
}

func TestLoginRateLimitedAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ana")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(ctx, LoginRequest{Username: "ana", Password: "wrong"})
		assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
	}

	_, err := f.svc.Login(ctx, LoginRequest{Username: "ana", Password: "s3cret-pass"})
	assert.Equal(t, pkgerrors.CodeRateLimit, pkgerrors.CodeOf(err))
}

func TestLoginInactiveUserForbidden(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t, "ana")
	require.NoError(t, f.conn.Model(&models.User{}).Where("id = ?", resp.User.ID).Update("is_active", false).Error)

	_, err := f.svc.Login(context.Background(), LoginRequest{Username: "ana", Password: "s3cret-pass"})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = f.svc.Login(context.Background(), LoginRequest{Username: "ana", Password: "wrong"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}
