package enums

import "fmt"

// DeliveryMethod describes how an order reaches the customer.
type DeliveryMethod string

const (
	DeliveryMethodPickup   DeliveryMethod = "pickup"
	DeliveryMethodDelivery DeliveryMethod = "delivery"
)

func (d DeliveryMethod) String() string {
	return string(d)
}

func (d DeliveryMethod) IsValid() bool {
	return d == DeliveryMethodPickup || d == DeliveryMethodDelivery
}

func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	method := DeliveryMethod(value)
	if !method.IsValid() {
		return "", fmt.Errorf("invalid delivery method %q", value)
	}
	return method, nil
}
