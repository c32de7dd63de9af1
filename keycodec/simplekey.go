package keycodec

import (
	"strings"

	"github.com/evalgo-org/sportsxref/xerrors"
)

// BuildExternalKey composes the simple external key "extId<Simple>scope"
// used by every entity type that does not have a compound key.
func BuildExternalKey(sep Separators, extID, scope string) string {
	return extID + sep.Simple + scope
}

// ParseExternalKey decomposes a simple external key back into its
// (extID, scope) pair. It requires exactly one occurrence of the
// separator; anything else is a *xerrors.BadCompoundKey.
func ParseExternalKey(sep Separators, key string) (extID, scope string, err error) {
	parts := strings.Split(key, sep.Simple)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &xerrors.BadCompoundKey{Kind: "simple", Key: key}
	}
	return parts[0], parts[1], nil
}
