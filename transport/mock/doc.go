// Package mock provides a recording test double for transport.Transport.
//
// MockTransport records every outbound call and returns sequential message
// IDs. Behavior can be overridden per method through function fields:
//
//	tr := mock.NewMockTransport()
//	tr.ForwardMessageFunc = func(ctx context.Context, to, from core.ChatID, msg core.MessageID) (core.MessageID, error) {
//	    return 0, errors.New("forbidden")
//	}
//
// All methods are safe for concurrent use, so the double can be shared with
// worker pools and timers.
package mock
