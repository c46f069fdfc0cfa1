package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
)

// QueryString returns the trimmed value of key, nil when absent or blank.
func QueryString(r *http.Request, key string) *string {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	return &raw
}

func QueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := QueryString(r, key)
	if raw == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid query parameter").WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

// QueryBool treats an absent flag as false.
func QueryBool(r *http.Request, key string) (bool, error) {
	raw := QueryString(r, key)
	if raw == nil {
		return false, nil
	}
	v, err := strconv.ParseBool(*raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a boolean").WithDetails(map[string]any{"field": key})
	}
	return v, nil
}

// QueryEnum parses key with one of the pkg/enums Parse functions.
func QueryEnum[T any](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := QueryString(r, key)
	if raw == nil {
		return nil, nil
	}
	v, err := parse(*raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported "+key).WithDetails(map[string]any{"field": key, "value": *raw})
	}
	return &v, nil
}

// QueryDecimal parses key as a decimal amount.
func QueryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	raw := QueryString(r, key)
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	return &d, nil
}
