// Package broadcast delivers one payload to many users.
//
// A payload is either a TextMessage or a ReferenceCopy of an existing
// message. Every recipient gets exactly one attempt with a bounded timeout,
// deliveries run on a worker pool, and the outcome is summarized in a Tally:
//
//	fanout, err := broadcast.New(tr, broadcast.WithWorkers(8))
//	tally, err := fanout.Broadcast(ctx, broadcast.TextMessage{Text: "hello"}, users)
//	// tally.Success + tally.Failure == len(users)
//
// Per-recipient failures (blocked bot, deleted account, timeout) never
// abort the run. Only an invalid payload is reported as an error.
package broadcast
