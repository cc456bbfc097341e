package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const slugSuffixLen = 6

// DeriveSlug builds the public storefront slug from the business name and the
// owning user id. The suffix is a fixed-length digest of the user id, which
// makes the slug a pure function of its inputs: two users with the same
// business name still get distinct slugs, no collision-retry loop needed.
func DeriveSlug(businessName, userID string) string {
	base := slugify(businessName)
	if base == "" {
		base = "loja"
	}
	sum := sha256.Sum256([]byte(userID))
	return base + "-" + hex.EncodeToString(sum[:])[:slugSuffixLen]
}

func slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	stripped := stripDiacritics(lowered)

	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
