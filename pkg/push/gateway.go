// Package push wraps the push delivery transport behind a small typed
// gateway: a token plus payload in, a delivery receipt or classified error
// out. The engine never talks to FCM directly.
package push

import "context"

// Payload is the notification content handed to the gateway.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Receipt is returned on successful delivery.
type Receipt struct {
	DeliveryID string
}

// Gateway delivers one payload to one device token.
type Gateway interface {
	Send(ctx context.Context, token string, payload Payload) (*Receipt, error)
}

// ErrorCode classifies gateway failures.
type ErrorCode string

const (
	// CodeInvalidToken means the token is expired or unknown; never retry,
	// deactivate the token.
	CodeInvalidToken ErrorCode = "invalid_token"
	// CodeRateLimited means the gateway pushed back; retry with backoff.
	CodeRateLimited ErrorCode = "rate_limited"
	// CodeUnreachable means the gateway could not be reached; retry with backoff.
	CodeUnreachable ErrorCode = "unreachable"
)

// Error is a classified gateway failure.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether the failure is worth retrying.
func (e *Error) Temporary() bool {
	return e.Code == CodeRateLimited || e.Code == CodeUnreachable
}
