package zarinpal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		name  string
		token string
		code  int
		want  PaymentState
	}{
		{"ok token with success code", "OK", StatusOK, StatePaid},
		{"lowercase ok token", "ok", StatusOK, StatePaid},
		{"ok token padded", " ok ", StatusOK, StatePaid},
		{"ok token wrong code", "OK", 101, StatePending},
		{"declined token with success code", "NOK", StatusOK, StatePending},
		{"empty token", "", StatusOK, StatePending},
		{"empty token zero code", "", 0, StatePending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapStatus(tc.token, tc.code))
		})
	}
}
