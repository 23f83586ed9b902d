package models

import (
	"strings"
	"unicode"
)

// NameFromEmail guesses a display name from the local part of an address:
// "ada.lovelace@example.org" becomes "Ada Lovelace". Single-word locals keep
// one word; an empty local part yields "Officer".
func NameFromEmail(addr string) string {
	local, _, _ := strings.Cut(addr, "@")
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(words) == 0 {
		return "Officer"
	}
	if len(words) > 1 {
		words = []string{words[0], words[len(words)-1]}
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
