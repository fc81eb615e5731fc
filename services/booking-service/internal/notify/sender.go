package notify

import (
	"context"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// Message is one notification ready for delivery. Meta carries the channel
// configuration taken from the integration (gateway instance id, token, ...).
type Message struct {
	Body    string
	Subject string
	Meta    map[string]string
}

// Sender delivers a message to a client over one channel. An error means the
// message did not go out; callers decide whether to retry.
type Sender interface {
	Send(ctx context.Context, client model.Client, msg Message) error
	ProviderID() string
}
