package badger

import (
	"encoding/binary"

	"github.com/poiesic/reelbot/core"
)

// Key prefixes for different data types
const (
	catalogRecordPrefix = "catrec:"
	userRecordPrefix    = "usrrec:"
	escalationPrefix    = "escrec:"
	feedbackPrefix      = "fdbrec:"
	feedbackIDSeq       = "fdbseq"
	settingPrefix       = "setting:"
)

// makeFixedKey appends an 8-byte big-endian integer to prefix so that
// lexicographic key order equals numeric order.
func makeFixedKey(prefix string, v uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], v)
	return buf
}

// makeCatalogKey generates a key for a catalog record by post ID.
func makeCatalogKey(id core.PostID) []byte {
	return makeFixedKey(catalogRecordPrefix, uint64(id))
}

// makeUserKey generates a key for a user profile.
func makeUserKey(id core.UserID) []byte {
	return makeFixedKey(userRecordPrefix, uint64(id))
}

// makeEscalationKey generates a key for an escalation entry from its normalized query.
func makeEscalationKey(query string) []byte {
	return makeFixedKey(escalationPrefix, uint64(core.IDFromContent(query)))
}

// makeFeedbackKey generates a key for a feedback entry by sequence number.
func makeFeedbackKey(seq uint64) []byte {
	return makeFixedKey(feedbackPrefix, seq)
}

// makeSettingKey generates a key for a named setting.
func makeSettingKey(name string) []byte {
	return []byte(settingPrefix + name)
}
