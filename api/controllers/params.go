package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ferremas/backoffice/api/middleware"
	"github.com/ferremas/backoffice/internal/orders"
	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
)

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// actorFrom reads the authenticated identity set by middleware.Auth.
func actorFrom(r *http.Request) (orders.Actor, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return orders.Actor{UserID: userID, Role: middleware.RoleFromContext(r.Context())}, nil
}
