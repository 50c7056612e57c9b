package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/reelbot/core"
	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		ok   bool
		name string
		args string
	}{
		{"/start", true, "start", ""},
		{"/Stats@reel_bot", true, "stats", ""},
		{"  /broadcast hello   world ", true, "broadcast", "hello   world"},
		{"/notify off", true, "notify", "off"},
		{"inception", false, "", ""},
		{"/", false, "", ""},
		{"/@bot", false, "", ""},
	}
	for _, tt := range tests {
		cmd, ok := parseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.name, cmd.name, tt.text)
		assert.Equal(t, tt.args, cmd.args, tt.text)
	}
}

func TestParsePayload(t *testing.T) {
	p := parsePayload("movie_77")
	assert.Equal(t, payloadMovie, p.kind)
	assert.Equal(t, core.PostID(77), p.id)

	p = parsePayload("lang_hindi_the dark_knight")
	assert.Equal(t, payloadLanguage, p.kind)
	assert.Equal(t, core.LanguageHindi, p.language)
	assert.Equal(t, "the dark_knight", p.query)

	assert.Equal(t, payloadEscalation, parsePayload("soon_12").kind)
	assert.Equal(t, payloadEscalation, parsePayload("has_bogus").kind)

	for _, bad := range []string{"", "movie_", "movie_x", "movie_-1", "lang_Klingon_x", "lang_Hindi_", "lang_Hindi", "other"} {
		assert.Equal(t, payloadUnknown, parsePayload(bad).kind, bad)
	}
}

func TestLanguagePayloadFitsLimit(t *testing.T) {
	query := strings.Repeat("বাংলা ", 30)
	p := languagePayload(core.LanguageBengali, query)
	assert.LessOrEqual(t, len(p), maxPayloadBytes)
	assert.True(t, utf8.ValidString(p))

	parsed := parsePayload(p)
	assert.Equal(t, payloadLanguage, parsed.kind)
	assert.True(t, strings.HasPrefix(query, parsed.query))
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateBytes("abc", 10))
	assert.Equal(t, "ab", truncateBytes("abc", 2))
	assert.Equal(t, "", truncateBytes("abc", 0))
	// "ক" is 3 bytes; never split it.
	assert.Equal(t, "a", truncateBytes("aক", 3))
}
