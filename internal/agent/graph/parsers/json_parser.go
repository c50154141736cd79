package parsers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ax5-sect/server/internal/agent/model"
	logx "github.com/ax5-sect/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 256 * 1024 // 256KB
	maxErrSnippet = 200        // limit log snippet size
)

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// ParseResponse decodes a responder answer into a Payload. The first fenced
// block wins, otherwise the whole text is decoded. Anything that is not a
// JSON object comes back as the parse-failure shape; this never fails.
func ParseResponse(raw string) (payload model.Payload) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "json_parser").Msgf("panic recovered: %v", r)
			payload = model.ParseFailure(raw)
		}
	}()

	body, err := extractJSON(raw)
	if err != nil {
		logx.Debug().Err(err).Str("snippet", safeSnippet(raw)).Msg("response is not parseable")
		return model.ParseFailure(raw)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		logx.Debug().Err(err).Str("snippet", safeSnippet(body)).Msg("response is not a JSON object")
		return model.ParseFailure(raw)
	}
	if obj == nil {
		return model.ParseFailure(raw)
	}
	return model.Payload(obj)
}

func extractJSON(raw string) (string, error) {
	if len(raw) > maxContentLen {
		return "", fmt.Errorf("content too large: %d bytes", len(raw))
	}
	if !utf8.ValidString(raw) {
		return "", fmt.Errorf("content invalid utf8")
	}
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", fmt.Errorf("empty content")
	}
	return body, nil
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	cut := maxErrSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
