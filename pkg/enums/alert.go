package enums

// AlertSeverity grades a stock alert.
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

func (s AlertSeverity) String() string {
	return string(s)
}

// EventType names a notification published to the realtime channel.
type EventType string

const (
	EventStockAlert    EventType = "stock_alert"
	EventOrderStatus   EventType = "order_status"
	EventPaymentStatus EventType = "payment_status"
)

var validEventTypes = []EventType{EventStockAlert, EventOrderStatus, EventPaymentStatus}

func (e EventType) String() string {
	return string(e)
}

func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}
