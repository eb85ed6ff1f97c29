package shipox

import (
	"encoding/json"
	"strings"
)

// tokenPaths lists where the auth response may carry the token, most specific first.
// The provider's response shape differs between deployments.
var tokenPaths = []string{
	"data.data.id_token",
	"data.id_token",
	"id_token",
	"access_token",
	"token",
}

// collectionPaths lists where a list endpoint may nest its items
var collectionPaths = []string{
	"data",
	"data.data",
	"data.list",
	"list",
}

// lookup walks a dotted path through nested JSON objects
func lookup(root json.RawMessage, path string) (json.RawMessage, bool) {
	current := root
	for _, key := range strings.Split(path, ".") {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil || obj == nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// extractToken returns the first non-empty string found along tokenPaths
func extractToken(body json.RawMessage) (string, bool) {
	for _, path := range tokenPaths {
		raw, ok := lookup(body, path)
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil || value == "" {
			continue
		}
		return value, true
	}
	return "", false
}

// extractItems returns the first JSON array found along collectionPaths.
// When none matches it returns an empty, non-nil slice.
func extractItems(body json.RawMessage) ([]json.RawMessage, string) {
	for _, path := range collectionPaths {
		raw, ok := lookup(body, path)
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil || items == nil {
			continue
		}
		return items, path
	}
	return []json.RawMessage{}, ""
}
