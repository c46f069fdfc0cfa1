// Package alerts decides whether a stock level deserves a low-stock or out-of-stock alert.
package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ferremas/backoffice/pkg/enums"
)

// Level is a post-mutation stock reading.
type Level struct {
	ProductID   uuid.UUID
	ProductName string
	BranchID    uuid.UUID
	BranchName  string
	Quantity    int
	MinStock    int
}

// Alert is the payload published on the stock_alert channel.
type Alert struct {
	Type         enums.EventType     `json:"type"`
	Severity     enums.AlertSeverity `json:"severity"`
	ProductID    uuid.UUID           `json:"product_id"`
	ProductName  string              `json:"product_name"`
	BranchID     uuid.UUID           `json:"branch_id"`
	BranchName   string              `json:"branch_name"`
	CurrentStock int                 `json:"current_stock"`
	MinStock     int                 `json:"min_stock"`
	Message      string              `json:"message"`
	Timestamp    time.Time           `json:"timestamp"`
}

// SeverityFor returns critical at or below zero, warning at or below the threshold, and false otherwise.
func SeverityFor(quantity, minStock int) (enums.AlertSeverity, bool) {
	switch {
	case quantity <= 0:
		return enums.AlertSeverityCritical, true
	case quantity <= minStock:
		return enums.AlertSeverityWarning, true
	default:
		return "", false
	}
}

// Evaluate builds the alert for level, if any.
func Evaluate(level Level, now time.Time) (*Alert, bool) {
	severity, ok := SeverityFor(level.Quantity, level.MinStock)
	if !ok {
		return nil, false
	}
	return &Alert{
		Type:         enums.EventStockAlert,
		Severity:     severity,
		ProductID:    level.ProductID,
		ProductName:  level.ProductName,
		BranchID:     level.BranchID,
		BranchName:   level.BranchName,
		CurrentStock: level.Quantity,
		MinStock:     level.MinStock,
		Message:      message(severity, level),
		Timestamp:    now.UTC(),
	}, true
}

func message(severity enums.AlertSeverity, level Level) string {
	if severity == enums.AlertSeverityCritical {
		return fmt.Sprintf("Out of stock: %s at %s (%d units)", level.ProductName, level.BranchName, level.Quantity)
	}
	return fmt.Sprintf("Low stock: %s at %s (%d units, minimum %d)", level.ProductName, level.BranchName, level.Quantity, level.MinStock)
}
