package zarinpal

import "strings"

// StatusOK is the gateway status code that signals a successful
// payment request or verification.
const StatusOK = 100

// PaymentState is the coarse payment state derived from a gateway callback.
type PaymentState string

const (
	StatePending PaymentState = "PENDING"
	StatePaid    PaymentState = "PAID"
)

// MapStatus maps a callback token and verification status code to a
// payment state. Only the combination of an affirmative token and the
// success status code counts as paid; everything else stays pending.
func MapStatus(token string, code int) PaymentState {
	if strings.EqualFold(strings.TrimSpace(token), "ok") && code == StatusOK {
		return StatePaid
	}
	return StatePending
}
