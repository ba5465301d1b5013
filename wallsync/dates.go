package wallsync

import (
	"strings"
	"time"
)

const dateTokenLayout = "20060102"

// ParseDateToken parses a YYYYMMDD token as midnight UTC. Anything else,
// including impossible calendar dates, yields the current time instead of an error.
func ParseDateToken(token string) time.Time {
	if !isDateToken(token) {
		return time.Now().UTC()
	}
	tm, err := time.ParseInLocation(dateTokenLayout, token, time.UTC)
	if err != nil {
		return time.Now().UTC()
	}
	return tm
}

func isDateToken(s string) bool {
	if len(s) != len(dateTokenLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FallbackToken strips separator characters from a filename stem, so that
// "2024-01-01" and "2024_01_01" both become "20240101".
func FallbackToken(stem string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '.', '/', ' ':
			return -1
		}
		return r
	}, stem)
}
