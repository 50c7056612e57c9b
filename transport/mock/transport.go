package mock

import (
	"context"
	"sync"

	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/transport"
)

// Call kinds recorded by MockTransport.
const (
	KindText    = "text"
	KindPhoto   = "photo"
	KindForward = "forward"
	KindCopy    = "copy"
	KindDelete  = "delete"
	KindAnswer  = "answer"
)

// Call is one recorded outbound operation.
type Call struct {
	Kind     string
	Chat     core.ChatID
	From     core.ChatID
	Message  core.MessageID
	Text     string
	Photo    string
	Keyboard transport.Keyboard
	Callback string
}

// MockTransport is a test double for transport.Transport.
// Function fields, when set, replace the default behavior. Failed calls
// are recorded too.
type MockTransport struct {
	SendTextFunc       func(ctx context.Context, chat core.ChatID, text string, keyboard transport.Keyboard) (core.MessageID, error)
	SendPhotoFunc      func(ctx context.Context, chat core.ChatID, photo, caption string, keyboard transport.Keyboard) (core.MessageID, error)
	ForwardMessageFunc func(ctx context.Context, to, from core.ChatID, message core.MessageID) (core.MessageID, error)
	CopyMessageFunc    func(ctx context.Context, to, from core.ChatID, message core.MessageID) (core.MessageID, error)
	DeleteMessageFunc  func(ctx context.Context, chat core.ChatID, message core.MessageID) error
	AnswerChoiceFunc   func(ctx context.Context, callbackID, text string) error

	mu     sync.Mutex
	calls  []Call
	nextID core.MessageID
}

var _ transport.Transport = (*MockTransport)(nil)

// NewMockTransport creates a transport that accepts every call.
func NewMockTransport() *MockTransport {
	return &MockTransport{nextID: 1000}
}

func (m *MockTransport) record(c Call) core.MessageID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	m.nextID++
	return m.nextID
}

// SendText records a text message.
func (m *MockTransport) SendText(ctx context.Context, chat core.ChatID, text string, keyboard transport.Keyboard) (core.MessageID, error) {
	id := m.record(Call{Kind: KindText, Chat: chat, Text: text, Keyboard: keyboard})
	if m.SendTextFunc != nil {
		return m.SendTextFunc(ctx, chat, text, keyboard)
	}
	return id, nil
}

// SendPhoto records a picture message.
func (m *MockTransport) SendPhoto(ctx context.Context, chat core.ChatID, photo, caption string, keyboard transport.Keyboard) (core.MessageID, error) {
	id := m.record(Call{Kind: KindPhoto, Chat: chat, Photo: photo, Text: caption, Keyboard: keyboard})
	if m.SendPhotoFunc != nil {
		return m.SendPhotoFunc(ctx, chat, photo, caption, keyboard)
	}
	return id, nil
}

// ForwardMessage records a forward.
func (m *MockTransport) ForwardMessage(ctx context.Context, to, from core.ChatID, message core.MessageID) (core.MessageID, error) {
	id := m.record(Call{Kind: KindForward, Chat: to, From: from, Message: message})
	if m.ForwardMessageFunc != nil {
		return m.ForwardMessageFunc(ctx, to, from, message)
	}
	return id, nil
}

// CopyMessage records a copy.
func (m *MockTransport) CopyMessage(ctx context.Context, to, from core.ChatID, message core.MessageID) (core.MessageID, error) {
	id := m.record(Call{Kind: KindCopy, Chat: to, From: from, Message: message})
	if m.CopyMessageFunc != nil {
		return m.CopyMessageFunc(ctx, to, from, message)
	}
	return id, nil
}

// DeleteMessage records a deletion.
func (m *MockTransport) DeleteMessage(ctx context.Context, chat core.ChatID, message core.MessageID) error {
	m.record(Call{Kind: KindDelete, Chat: chat, Message: message})
	if m.DeleteMessageFunc != nil {
		return m.DeleteMessageFunc(ctx, chat, message)
	}
	return nil
}

// AnswerChoice records a callback acknowledgement.
func (m *MockTransport) AnswerChoice(ctx context.Context, callbackID, text string) error {
	m.record(Call{Kind: KindAnswer, Callback: callbackID, Text: text})
	if m.AnswerChoiceFunc != nil {
		return m.AnswerChoiceFunc(ctx, callbackID, text)
	}
	return nil
}

// Calls returns a snapshot of every recorded call.
func (m *MockTransport) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsOf returns the recorded calls of one kind.
func (m *MockTransport) CallsOf(kind string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// CountOf returns how many calls of one kind were recorded.
func (m *MockTransport) CountOf(kind string) int {
	return len(m.CallsOf(kind))
}

// Reset forgets every recorded call.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
