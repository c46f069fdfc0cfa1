package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/pagination"
	"github.com/ferremas/backoffice/pkg/security"
	"github.com/google/uuid"
)

const temporaryPasswordSize = 12

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo     *Repository
	Password config.PasswordConfig
	Logger   *logger.Logger
}

// Service owns account provisioning, profiles and the admin user directory.
type Service struct {
	repo   *Repository
	hasher security.Hasher
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{repo: params.Repo, hasher: security.NewHasher(params.Password), logg: params.Logger}, nil
}

// CreateAccount validates input, rejects duplicate identities and stores the hashed password.
func (s *Service) CreateAccount(ctx context.Context, input CreateUserInput, passwordChangeRequired bool) (*models.User, error) {
	username := NormalizeUsername(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if len(username) < 3 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username must have at least 3 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is invalid")
	}
	if err := security.CheckPolicy(input.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	role := input.Role
	if role == "" {
		role = enums.RoleCustomer
	}
	if !role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", role)
	}

	usernameTaken, emailTaken, err := s.repo.IdentityTaken(ctx, username, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check identity")
	}
	if usernameTaken || emailTaken {
		return nil, duplicateIdentity(usernameTaken, emailTaken)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		Username:               username,
		Email:                  email,
		PasswordHash:           hash,
		FirstName:              trimmed(input.FirstName),
		LastName:               trimmed(input.LastName),
		Phone:                  trimmed(input.Phone),
		Address:                trimmed(input.Address),
		Role:                   role,
		PasswordChangeRequired: passwordChangeRequired,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username or email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert user")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "role": user.Role.String()})
	s.logg.Info(logCtx, "user created")
	return user, nil
}

// CreateUser lets an admin provision an account of any role. A temporary password is
// generated when none is supplied and must be changed on first login.
func (s *Service) CreateUser(ctx context.Context, actorRole enums.Role, input CreateUserInput) (*CreatedUser, error) {
	if actorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can create users")
	}
	if input.Role == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role is required")
	}

	var temporary string
	if input.Password == "" {
		generated, err := security.GenerateTempPassword(temporaryPasswordSize)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		temporary = generated
		input.Password = generated
	}

	user, err := s.CreateAccount(ctx, input, temporary != "")
	if err != nil {
		return nil, err
	}
	return &CreatedUser{User: FromModel(user), TemporaryPassword: temporary}, nil
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *Service) ListUsers(ctx context.Context, actorRole enums.Role, filters ListFilters, params pagination.Params) (*UserList, error) {
	if actorRole != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can list users")
	}
	if filters.Role != nil && !filters.Role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", *filters.Role)
	}
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &UserList{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

// NormalizeUsername is the canonical form used for storage and lookups.
func NormalizeUsername(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func duplicateIdentity(usernameTaken, emailTaken bool) error {
	fields := map[string]string{}
	if usernameTaken {
		fields["username"] = "already registered"
	}
	if emailTaken {
		fields["email"] = "already registered"
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "username or email already registered").WithDetails(fields)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
