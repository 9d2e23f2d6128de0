package ivr

import (
	"strconv"
	"strings"
)

// Match returns the first option whose key or alias occurs in input, ignoring
// case. Underscores in keys also match spaces. A bare option number, counted
// from 1, selects that option.
func Match(options []Option, input string) (Option, bool) {
	normalized := strings.ToLower(strings.TrimSpace(bengaliDigits.Replace(input)))
	if normalized == "" {
		return Option{}, false
	}

	if n, err := strconv.Atoi(normalized); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return Option{}, false
	}

	for _, option := range options {
		for _, key := range append([]string{option.Key}, option.Aliases...) {
			if keyMatches(normalized, key) {
				return option, true
			}
		}
	}
	return Option{}, false
}

func keyMatches(input, key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	return strings.Contains(input, key) || strings.Contains(input, strings.ReplaceAll(key, "_", " "))
}
