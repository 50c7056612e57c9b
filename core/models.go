package core

import (
	"encoding/binary"
	"slices"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier used for store keys that have no natural
// numeric identity, such as escalation entries keyed by query text.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// PostID identifies a post in the source channel. It is the catalog key.
type PostID int64

// UserID identifies a chat platform user.
type UserID int64

// ChatID identifies a chat (private chat, group or channel).
type ChatID int64

// MessageID identifies a message within a chat.
type MessageID int64

// Language is the derived language tag of a catalog record.
type Language string

const (
	LanguageBengali Language = "Bengali"
	LanguageHindi   Language = "Hindi"
	LanguageEnglish Language = "English"
	LanguageUnknown Language = "Unknown"
)

// KnownLanguages lists the detection vocabulary in match priority order.
var KnownLanguages = []Language{LanguageBengali, LanguageHindi, LanguageEnglish}

// NotifyPreference is the tri-state notification flag of a user.
type NotifyPreference int

const (
	// NotifyUnset means the user never chose; treated as NotifyOn.
	NotifyUnset NotifyPreference = iota
	NotifyOn
	NotifyOff
)

// Enabled reports whether notifications should be delivered.
func (p NotifyPreference) Enabled() bool {
	return p != NotifyOff
}

func (p NotifyPreference) String() string {
	switch p {
	case NotifyOn:
		return "on"
	case NotifyOff:
		return "off"
	default:
		return "unset"
	}
}

// CatalogRecord is an indexed source channel post.
type CatalogRecord struct {
	ID        PostID
	Title     string
	Year      int      // 0 when no year token was found
	Language  Language // LanguageUnknown when no vocabulary word matched
	Thumbnail string   // image reference carried by the post, if any
	CreatedAt time.Time
	IndexedAt time.Time
}

// HasYear reports whether a release year was derived.
func (r *CatalogRecord) HasYear() bool {
	return r.Year != 0
}

// UserProfile is a registered user.
type UserProfile struct {
	ID           UserID
	DisplayName  string
	JoinedAt     time.Time
	Notify       NotifyPreference
	LastSearchAt time.Time
}

// EscalationEntry groups every user who asked an unmatched query.
type EscalationEntry struct {
	Query     string // normalized query, the unique key
	Users     []UserID
	FirstSeen time.Time
	LastSeen  time.Time
}

// Key returns the store key of the entry.
func (e *EscalationEntry) Key() ID {
	return IDFromContent(e.Query)
}

// AddUser adds a user with set semantics. Returns false when already present.
func (e *EscalationEntry) AddUser(id UserID) bool {
	if slices.Contains(e.Users, id) {
		return false
	}
	e.Users = append(e.Users, id)
	return true
}

// Feedback is a free-form message left by a user.
type Feedback struct {
	User      UserID
	Text      string
	Timestamp time.Time
}

// Setting keys.
const (
	SettingGlobalNotify = "global_notify"
)
