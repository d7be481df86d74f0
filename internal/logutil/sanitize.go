// Package logutil holds small helpers for safe logging of user input.
package logutil

import "strings"

// SanitizeForLog makes a user-provided string safe to embed in a log line.
// Hostnames, usernames and addresses arrive from the client and could
// otherwise smuggle newlines or terminal control characters into the log.
// Newlines and tabs become spaces, all other control characters are dropped.
func SanitizeForLog(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
