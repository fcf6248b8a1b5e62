package commerce

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// APIError captures a failed call to the commerce REST API: a non-2xx status, or a 2xx
// whose body was not JSON (typically an HTML login or error page).
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	NotJSON    bool
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("%s %s failed: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s failed: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// errorBody is the platform's error envelope. Parameters are either positional (%1, %2)
// or named (%fieldName).
type errorBody struct {
	Message    string          `json:"message"`
	Parameters json.RawMessage `json:"parameters"`
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Message == "" {
		return snippet(body)
	}
	return renderMessage(eb.Message, eb.Parameters)
}

func renderMessage(msg string, params json.RawMessage) string {
	if len(params) == 0 {
		return msg
	}

	var positional []any
	if err := json.Unmarshal(params, &positional); err == nil {
		// replace from the highest index down so %1 does not clobber %10
		for i := len(positional); i >= 1; i-- {
			msg = strings.ReplaceAll(msg, "%"+strconv.Itoa(i), fmt.Sprint(positional[i-1]))
		}
		return msg
	}

	var named map[string]any
	if err := json.Unmarshal(params, &named); err == nil {
		keys := lo.Keys(named)
		// longest first so %field does not clobber %fieldName
		slices.SortFunc(keys, func(a, b string) int { return len(b) - len(a) })
		for _, k := range keys {
			msg = strings.ReplaceAll(msg, "%"+k, fmt.Sprint(named[k]))
		}
	}
	return msg
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	const limit = 200
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
