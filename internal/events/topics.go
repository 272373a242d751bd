package events

// Topic constants for domain events emitted by the payment service.
const (
	TopicOrderPaid        = "order.paid"
	TopicPaymentFailed    = "payment.failed"
	TopicPaymentCancelled = "payment.cancelled"
)
