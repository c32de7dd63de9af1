package keycodec

import (
	"strings"

	"github.com/evalgo-org/sportsxref/xerrors"
)

// KeyMomentKey is the structurally-valid decomposition of a keyMoment
// compound external key:
//
//	isoDateTime<Simple>eventId<Simple>scope<Simple>type<Simple>subType
type KeyMomentKey struct {
	ISODateTime string
	EventID     string
	Scope       string
	Type        string
	SubType     string
}

// BuildKeyMomentKey composes a keyMoment compound external key.
func BuildKeyMomentKey(sep Separators, k KeyMomentKey) string {
	return strings.Join([]string{k.ISODateTime, k.EventID, k.Scope, k.Type, k.SubType}, sep.Simple)
}

// ParseKeyMomentKey strictly decodes a keyMoment compound external key.
// It requires exactly five non-empty segments separated by the simple
// separator.
func ParseKeyMomentKey(sep Separators, key string) (KeyMomentKey, error) {
	parts := strings.Split(key, sep.Simple)
	if len(parts) != 5 {
		return KeyMomentKey{}, &xerrors.BadCompoundKey{Kind: "keyMoment", Key: key}
	}
	for _, p := range parts {
		if p == "" {
			return KeyMomentKey{}, &xerrors.BadCompoundKey{Kind: "keyMoment", Key: key}
		}
	}
	return KeyMomentKey{
		ISODateTime: parts[0],
		EventID:     parts[1],
		Scope:       parts[2],
		Type:        parts[3],
		SubType:     parts[4],
	}, nil
}
