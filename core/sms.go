package core

import "context"

type (
	SMSMessage struct {
		To   string // 10-digit mobile number
		Body string
	}

	// SMSService delivers text messages through an SMS gateway.
	// Send returns an *ExternalServiceError when the gateway is unreachable or rejects the message.
	SMSService interface {
		Send(ctx context.Context, msg SMSMessage) error
	}
)
