// Package telegram adapts the Telegram Bot API to the transport package.
//
// Bot implements transport.Transport on top of telegram-bot-api and runs the
// long-polling update loop, translating updates into transport events:
//
//	bot, err := telegram.New(token, telegram.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	return bot.Run(ctx, handler)
//
// Channel posts are handled in arrival order on the polling goroutine.
// Private messages and button presses are dispatched to a worker pool so a
// slow query never blocks indexing. Sends rejected by Telegram flood control
// (HTTP 429) are retried with exponential backoff honoring retry_after.
package telegram
