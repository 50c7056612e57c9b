package escalation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/transport"
)

// Action is an operator's answer to an unmatched query.
type Action string

const (
	// ActionExists means the title is in the catalog under another spelling.
	ActionExists Action = "has"
	// ActionMissing means the title is not in the catalog.
	ActionMissing Action = "no"
	// ActionSoon means the title will be added.
	ActionSoon Action = "soon"
	// ActionWrongName means the query is not a recognizable title.
	ActionWrongName Action = "wrong"
)

// Actions lists every action in the order the choices are shown.
var Actions = []Action{ActionExists, ActionMissing, ActionSoon, ActionWrongName}

var actionLabels = map[Action]string{
	ActionExists:    "✅ Available",
	ActionMissing:   "❌ Not available",
	ActionSoon:      "⏳ Coming soon",
	ActionWrongName: "✏️ Wrong name",
}

var replyTemplates = map[Action]string{
	ActionExists:    "✅ This movie is in our catalog. Check the spelling and search again.",
	ActionMissing:   "❌ This movie is not in our catalog.",
	ActionSoon:      "⏳ This movie will be added soon.",
	ActionWrongName: "✏️ Please send the correct movie name.",
}

// Reply returns the fixed message sent to the user for a.
func (a Action) Reply() (string, bool) {
	text, ok := replyTemplates[a]
	return text, ok
}

// Payload encodes an operator choice as "<action>_<userID>".
func Payload(a Action, user core.UserID) string {
	return fmt.Sprintf("%s_%d", a, user)
}

// ParsePayload decodes an operator choice. ok is false for anything that is
// not a known action followed by a numeric user ID.
func ParsePayload(payload string) (Action, core.UserID, bool) {
	name, id, found := strings.Cut(payload, "_")
	if !found {
		return "", 0, false
	}
	action := Action(name)
	if _, known := replyTemplates[action]; !known {
		return "", 0, false
	}
	uid, err := strconv.ParseInt(id, 10, 64)
	if err != nil || uid <= 0 {
		return "", 0, false
	}
	return action, core.UserID(uid), true
}

// IsPayload reports whether payload looks like an operator choice, valid or not.
func IsPayload(payload string) bool {
	name, _, found := strings.Cut(payload, "_")
	if !found {
		return false
	}
	_, known := replyTemplates[Action(name)]
	return known
}

// Keyboard returns the four operator choices for a requester.
func Keyboard(user core.UserID) transport.Keyboard {
	choices := make([]transport.Choice, 0, len(Actions))
	for _, a := range Actions {
		choices = append(choices, transport.Choice{Label: actionLabels[a], Payload: Payload(a, user)})
	}
	return transport.Column(choices...)
}
