package wire

import "regexp"

// nameRe matches the nickname/room-name charset: ^[A-Za-z0-9_-]+$.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidName reports whether s is a legal nickname or room name: charset
// [A-Za-z0-9_-], length 1..maxLen inclusive.
func ValidName(s string, maxLen int) bool {
	if len(s) < 1 || len(s) > maxLen {
		return false
	}
	return nameRe.MatchString(s)
}

// MatchesNameCharset reports whether s matches the nickname/room-name
// charset on its own, independent of length. Callers that need to report
// a charset failure and a length failure as distinct handshake errors
// check this separately from length.
func MatchesNameCharset(s string) bool {
	return len(s) > 0 && nameRe.MatchString(s)
}

// ValidPrintable reports whether s is 7-bit printable ([0x20..0x7E], the
// regex class [ -~]) and no longer than maxLen. The empty string is valid
// (chat/emote bodies may be empty).
func ValidPrintable(s string, maxLen int) bool {
	if len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}
