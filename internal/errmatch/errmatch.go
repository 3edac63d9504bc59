// Package errmatch extracts error-code shaped tokens from incident
// descriptions and surfaces known-error context recorded against them.
package errmatch

import (
	"strings"
	"unicode"
)

// GeneralCode stands in when a description carries no recognizable code.
const GeneralCode = "GENERAL_ERROR"

// ExtractCodes pulls error codes out of free text. A code is a token
// containing an underscore or hyphen plus at least one digit or an
// all-caps letter shape (VESSEL_ERR_4, REF-IFT-0007, EDI-REJECT).
// Codes are uppercased and deduplicated in order of appearance. A
// description without any code yields [GeneralCode].
func ExtractCodes(description string) []string {
	seen := make(map[string]bool)
	var codes []string

	for _, token := range strings.Fields(description) {
		token = strings.Trim(token, ".,;:()[]{}<>\"'`!?")
		if !isCode(token) {
			continue
		}
		code := strings.ToUpper(token)
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	if len(codes) == 0 {
		return []string{GeneralCode}
	}
	return codes
}

func isCode(token string) bool {
	if len(token) < 3 || !strings.ContainsAny(token, "_-") {
		return false
	}

	hasDigit := false
	hasLower := false
	letters := 0
	for _, r := range token {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			letters++
			if unicode.IsLower(r) {
				hasLower = true
			}
		}
	}
	if hasDigit {
		return true
	}
	// No digit: accept only all-caps shapes with real letter content,
	// so hyphenated prose like "re-try" stays out.
	return letters >= 2 && !hasLower
}
