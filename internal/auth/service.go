package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/ferremas/backoffice/internal/users"
	pkgAuth "github.com/ferremas/backoffice/pkg/auth"
	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/security"
	"github.com/google/uuid"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	tokenType                 = "bearer"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
}

type service struct {
	accounts accountCreator
	users    userRepository
	limiter  loginLimiter
	jwtCfg   config.JWTConfig
	limits   config.AuthRateLimitConfig
	logg     *logger.Logger
	now      func() time.Time
}

type accountCreator interface {
	CreateAccount(ctx context.Context, input users.CreateUserInput, passwordChangeRequired bool) (*models.User, error)
}

type userRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// loginLimiter counts failed logins per username in fixed windows.
type loginLimiter interface {
	RateLimitCount(ctx context.Context, scope string) (int64, error)
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	ResetRateLimit(ctx context.Context, scope string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Accounts  accountCreator
	UserRepo  userRepository
	Limiter   loginLimiter
	JWTConfig config.JWTConfig
	RateLimit config.AuthRateLimitConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

// NewService constructs the register/login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Accounts == nil {
		return nil, fmt.Errorf("account creator is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Limiter == nil {
		return nil, fmt.Errorf("login limiter is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		accounts: params.Accounts,
		users:    params.UserRepo,
		limiter:  params.Limiter,
		jwtCfg:   params.JWTConfig,
		limits:   params.RateLimit,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	user, err := s.accounts.CreateAccount(ctx, users.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
		Role:      enums.RoleCustomer,
	}, false)
	if err != nil {
		return nil, err
	}
	return s.issue(user, s.now())
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	username := users.NormalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	scope := "login:" + username
	ctx = s.logg.WithField(ctx, "username", username)

	if s.limits.LoginLimit > 0 {
		failures, err := s.limiter.RateLimitCount(ctx, scope)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "login rate limit unavailable")
		} else if failures >= int64(s.limits.LoginLimit) {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many failed login attempts, try again later")
		}
	}

	user, err := s.authenticate(ctx, username, req.Password)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeUnauthorized {
			s.recordFailure(ctx, scope)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is disabled")
	}

	if err := s.limiter.ResetRateLimit(ctx, scope); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to reset login rate limit")
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "login succeeded")
	return s.issue(user, now)
}

func (s *service) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) recordFailure(ctx context.Context, scope string) {
	if s.limits.LoginLimit <= 0 {
		return
	}
	_, count, err := s.limiter.FixedWindowAllow(ctx, scope, int64(s.limits.LoginLimit), s.limits.LoginWindow)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to record login failure")
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "failures", count), "login failed")
}

func (s *service) issue(user *models.User, now time.Time) (*TokenResponse, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   tokenType,
		ExpiresIn:   s.jwtCfg.ExpirationMinutes * 60,
		User:        users.FromModel(user),
	}, nil
}
