package encoding

import (
	"encoding/base32"
	"strings"
)

const (
	crockfordAlphabet   = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	crockfordAlphabetLC = "0123456789abcdefghjkmnpqrstvwxyz"
)

//nolint:gochecknoglobals
var crockford = base32.NewEncoding(crockfordAlphabet).WithPadding(base32.NoPadding)

// EncodeCrockfordB32LC encodes input with Crockford's base32 alphabet, lowercased and
// without padding.
func EncodeCrockfordB32LC(input []byte) string {
	return strings.ToLower(crockford.EncodeToString(input))
}

// NormalizeCrockfordB32LC maps user-typed identifiers onto the canonical lowercase
// form: spaces are dropped, O becomes 0, I and L become 1.
func NormalizeCrockfordB32LC(input string) string {
	return strings.ToLower(strings.NewReplacer(
		" ", "",
		"O", "0", "o", "0",
		"I", "1", "i", "1",
		"L", "1", "l", "1",
	).Replace(input))
}

// IsCrockfordB32LC reports whether s is a non-empty canonical lowercase identifier.
func IsCrockfordB32LC(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !strings.ContainsRune(crockfordAlphabetLC, r) {
			return false
		}
	}

	return true
}
