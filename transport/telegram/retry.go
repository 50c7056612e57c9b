// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RetryWithBackoff retries an operation rejected by flood control.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Errors other than flood control are returned immediately. When Telegram
// names a retry_after longer than the computed delay, that wait is used.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("telegram call succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		retryAfter, limited := floodWait(lastErr)
		if !limited {
			return lastErr
		}

		slog.Debug("telegram flood control, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		if attempt == maxAttempts {
			break
		}

		// baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		if retryAfter > delay {
			delay = retryAfter
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// floodWait reports whether err is a flood control rejection and how long
// Telegram asked to wait.
func floodWait(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErrorWait(*apiErr)
	}
	var valErr tgbotapi.Error
	if errors.As(err, &valErr) {
		return apiErrorWait(valErr)
	}
	return 0, false
}

func apiErrorWait(e tgbotapi.Error) (time.Duration, bool) {
	wait := time.Duration(e.RetryAfter) * time.Second
	return wait, e.Code == http.StatusTooManyRequests || e.RetryAfter > 0
}
