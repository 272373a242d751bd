package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanMarkPaid(t *testing.T) {
	o := &Order{PaymentStatus: PaymentPending}
	assert.True(t, o.CanMarkPaid())

	o.PaymentStatus = PaymentPaid
	assert.False(t, o.CanMarkPaid())
}

func TestCanRepost(t *testing.T) {
	now := time.Now()

	o := &Order{PaymentStatus: PaymentPending, CreatedAt: now}
	assert.False(t, o.CanRepost(now), "inside the grace period")
	assert.False(t, o.CanRepost(now.Add(4*time.Second)))
	assert.True(t, o.CanRepost(now.Add(5*time.Second)), "grace boundary is inclusive")
	assert.True(t, o.CanRepost(now.Add(time.Hour)))

	o.PaymentStatus = PaymentPaid
	assert.False(t, o.CanRepost(now.Add(time.Hour)), "paid orders never repost")
}
