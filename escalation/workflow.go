// Package escalation handles queries the catalog could not answer.
//
// Escalate records the requester in the escalation log entry of the
// normalized query, then notifies every operator with four canned answers.
// When an operator picks one, HandleChoice sends the matching template to
// the user. Entries stay in the log until an operator clears it.
package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/reelbot/broadcast"
	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/metrics"
	"github.com/poiesic/reelbot/storage"
	"github.com/poiesic/reelbot/transport"
)

// Workflow records unmatched queries and routes operator answers.
type Workflow struct {
	escalations storage.EscalationRepository
	fanout      *broadcast.Fanout
	transport   transport.Transport
	operators   []core.UserID
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithMetrics records escalation counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) {
		w.metrics = m
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
	}
}

// WithClock overrides the time source used for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// New creates a Workflow notifying operators.
func New(
	escalations storage.EscalationRepository,
	fanout *broadcast.Fanout,
	tr transport.Transport,
	operators []core.UserID,
	opts ...Option,
) (*Workflow, error) {
	if escalations == nil {
		return nil, ErrRepositoryRequired
	}
	if fanout == nil {
		return nil, ErrFanoutRequired
	}
	if tr == nil {
		return nil, ErrTransportRequired
	}

	w := &Workflow{
		escalations: escalations,
		fanout:      fanout,
		transport:   tr,
		operators:   slices.Clone(operators),
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// IsOperator reports whether user is on the operator allow-list.
func (w *Workflow) IsOperator(user core.UserID) bool {
	return slices.Contains(w.operators, user)
}

// Escalate records user as a requester of query and notifies every operator.
// The log write completes before any notice is sent. Notice failures are
// logged and never returned.
func (w *Workflow) Escalate(ctx context.Context, query string, user core.UserID, displayName string) (*core.EscalationEntry, error) {
	raw := core.TrimQuery(query)
	entry, err := w.escalations.RecordRequest(ctx, core.NormalizeQuery(raw), user, w.now())
	if err != nil {
		return nil, err
	}
	w.metrics.Escalated()
	w.logger.Info("query escalated", "query", entry.Query, "user", user, "requesters", len(entry.Users))

	if len(w.operators) == 0 {
		return entry, nil
	}

	notice := broadcast.TextMessage{
		Text:     noticeText(raw, user, displayName),
		Keyboard: Keyboard(user),
	}
	results, err := w.fanout.Deliver(ctx, notice, w.operators)
	if err != nil {
		w.logger.Warn("operator notice rejected", "error", err)
		return entry, nil
	}
	for _, r := range results {
		if !r.Delivered() {
			w.logger.Warn("operator notice failed", "operator", r.Recipient, "error", r.Err)
		}
	}
	return entry, nil
}

func noticeText(query string, user core.UserID, displayName string) string {
	who := fmt.Sprintf("%d", user)
	if displayName != "" {
		who = fmt.Sprintf("%s (%d)", displayName, user)
	}
	return fmt.Sprintf("❗ %s searched for: %s\nNo result was found. Choose a reply below.", who, query)
}

// HandleChoice answers an operator's choice. Malformed payloads and presses
// by non-operators are acknowledged and otherwise ignored.
func (w *Workflow) HandleChoice(ctx context.Context, choice transport.ChoiceSelected) error {
	action, user, ok := ParsePayload(choice.Payload)
	if !ok || !w.IsOperator(choice.SenderID) {
		w.logger.Debug("ignoring escalation choice", "payload", choice.Payload, "sender", choice.SenderID)
		return w.transport.AnswerChoice(ctx, choice.CallbackID, "")
	}

	reply, _ := action.Reply()
	if _, err := w.transport.SendText(ctx, core.ChatID(user), reply, nil); err != nil {
		w.logger.Warn("could not reach requester", "user", user, "action", action, "error", err)
		return w.transport.AnswerChoice(ctx, choice.CallbackID, "Could not reach the user.")
	}
	w.logger.Info("escalation answered", "user", user, "action", action, "operator", choice.SenderID)
	return w.transport.AnswerChoice(ctx, choice.CallbackID, "The user has been informed.")
}

// Pending returns every open entry, oldest first.
func (w *Workflow) Pending(ctx context.Context) ([]*core.EscalationEntry, error) {
	return w.escalations.ListEscalations(ctx)
}

// Clear removes every entry and returns how many were removed.
func (w *Workflow) Clear(ctx context.Context) (int, error) {
	n, err := w.escalations.DeleteAllEscalations(ctx)
	if err != nil {
		return 0, err
	}
	w.logger.Info("escalation log cleared", "entries", n)
	return n, nil
}
