package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/reelbot/core"
	"github.com/poiesic/reelbot/escalation"
)

const (
	moviePrefix    = "movie_"
	languagePrefix = "lang_"
)

type payloadKind int

const (
	payloadUnknown payloadKind = iota
	payloadMovie
	payloadLanguage
	payloadEscalation
)

type payload struct {
	kind     payloadKind
	id       core.PostID
	language core.Language
	query    string
}

func moviePayload(id core.PostID) string {
	return fmt.Sprintf("%s%d", moviePrefix, id)
}

// languagePayload encodes a language filter. The query is cut so the
// payload fits the platform's 64 byte limit.
func languagePayload(language core.Language, query string) string {
	head := languagePrefix + string(language) + "_"
	return head + truncateBytes(query, maxPayloadBytes-len(head))
}

func parsePayload(data string) payload {
	switch {
	case strings.HasPrefix(data, moviePrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, moviePrefix), 10, 64)
		if err != nil || id <= 0 {
			return payload{}
		}
		return payload{kind: payloadMovie, id: core.PostID(id)}
	case strings.HasPrefix(data, languagePrefix):
		name, query, ok := strings.Cut(strings.TrimPrefix(data, languagePrefix), "_")
		if !ok {
			return payload{}
		}
		language, known := core.ParseLanguage(name)
		if !known || strings.TrimSpace(query) == "" {
			return payload{}
		}
		return payload{kind: payloadLanguage, language: language, query: query}
	case escalation.IsPayload(data):
		return payload{kind: payloadEscalation}
	}
	return payload{}
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
