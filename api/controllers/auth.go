package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ferremas/backoffice/api/middleware"
	"github.com/ferremas/backoffice/api/responses"
	"github.com/ferremas/backoffice/api/validators"
	"github.com/ferremas/backoffice/internal/auth"
	"github.com/ferremas/backoffice/internal/users"
	"github.com/ferremas/backoffice/pkg/enums"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/pagination"
)

// UserService is the account surface the HTTP layer needs.
type UserService interface {
	CreateUser(ctx context.Context, actorRole enums.Role, input users.CreateUserInput) (*users.CreatedUser, error)
	Profile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	ListUsers(ctx context.Context, actorRole enums.Role, filters users.ListFilters, params pagination.Params) (*users.UserList, error)
}

func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := svc.Register(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := svc.Login(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// AuthProfile returns the caller's own account.
func AuthProfile(svc UserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		profile, err := svc.Profile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// AdminCreateUser provisions a staff or customer account. The response carries the
// temporary password when none was supplied.
func AdminCreateUser(svc UserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input users.CreateUserInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.CreateUser(r.Context(), middleware.RoleFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AdminListUsers(svc UserService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			filters users.ListFilters
			err     error
		)
		if filters.Role, err = validators.QueryEnum(r, "role", enums.ParseRole); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if validators.QueryString(r, "is_active") != nil {
			active, err := validators.QueryBool(r, "is_active")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filters.Active = &active
		}
		list, err := svc.ListUsers(r.Context(), middleware.RoleFromContext(r.Context()), filters, pagination.FromRequest(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
