package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"gorm.io/gorm"

	pkgerrors "github.com/ferremas/backoffice/pkg/errors"
)

// IsUniqueViolation reports whether err is a unique-constraint failure. When
// constraintName is set, the violated constraint must match it.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return constraintName == "" || strings.Contains(err.Error(), constraintName)
	}
	code, constraint := pkgerrors.PGCode(err)
	if code == pgerrcode.UniqueViolation {
		return constraintName == "" || constraint == constraintName
	}
	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// IsNotFound reports whether err signals a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
