package core

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeBillRef resolves a loosely-typed bill reference to its canonical
// id. Feedback rows written by older clients carry the reference either as a
// bare id, a quoted id, or an ObjectId("...")-style wrapper; all of them must
// compare equal after normalization, never raw. Returns ok=false when the
// value does not contain a parseable id.
func NormalizeBillRef(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if inner, found := strings.CutPrefix(s, "ObjectId("); found {
		inner, found = strings.CutSuffix(inner, ")")
		if !found {
			return "", false
		}
		s = inner
	}
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)

	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
