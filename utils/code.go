package utils

import (
	"github.com/gosimple/slug"
)

// NormalizeCode canonicalizes a presented invitation code so "DJ Türbo 2024"
// and "dj-turbo-2024" resolve to the same stored code. Codes are
// per-referrer and reusable, so normalization must be stable across clients.
func NormalizeCode(code string) string {
	return slug.Make(code)
}
