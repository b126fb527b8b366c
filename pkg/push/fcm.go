package push

import (
	"context"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCM is the Firebase Cloud Messaging implementation of Gateway.
type FCM struct {
	client *messaging.Client
}

// NewFCM creates the FCM gateway. Returns (nil, nil) when credentials are
// absent so the server can start with push disabled.
func NewFCM(credentialsFile string) (*FCM, error) {
	if credentialsFile == "" {
		log.Println("⚠️ Firebase credentials not provided, push delivery disabled")
		return nil, nil
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, err
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, err
	}

	log.Println("✅ Firebase FCM initialized")
	return &FCM{client: client}, nil
}

// Send delivers one payload to one token and classifies FCM failures into
// the gateway error taxonomy.
func (f *FCM) Send(ctx context.Context, token string, payload Payload) (*Receipt, error) {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	id, err := f.client.Send(ctx, msg)
	if err != nil {
		return nil, &Error{Code: classify(err), Err: err}
	}
	return &Receipt{DeliveryID: id}, nil
}

func classify(err error) ErrorCode {
	switch {
	case messaging.IsUnregistered(err), messaging.IsInvalidArgument(err):
		return CodeInvalidToken
	case messaging.IsQuotaExceeded(err):
		return CodeRateLimited
	default:
		return CodeUnreachable
	}
}
