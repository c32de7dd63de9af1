package keycodec

import (
	"strings"

	"github.com/evalgo-org/sportsxref/typegraph"
	"github.com/evalgo-org/sportsxref/xerrors"
)

// EdgeLabel returns the canonical "from.field->to" string for an edge.
func EdgeLabel(from typegraph.EntityType, field string, to typegraph.EntityType) string {
	return typegraph.Edge{From: from, Field: field, To: to}.Label()
}

// ParseEdgeLabel decodes a "from.field->to" string into its triple.
// It returns *xerrors.BadEdgeLabel for anything that doesn't match that
// exact shape: missing "->", missing ".", or empty components.
func ParseEdgeLabel(label string) (from typegraph.EntityType, field string, to typegraph.EntityType, err error) {
	arrowIdx := strings.Index(label, "->")
	if arrowIdx < 0 {
		return "", "", "", &xerrors.BadEdgeLabel{Label: label}
	}

	left := label[:arrowIdx]
	right := label[arrowIdx+2:]
	if right == "" {
		return "", "", "", &xerrors.BadEdgeLabel{Label: label}
	}

	dotIdx := strings.Index(left, ".")
	if dotIdx < 0 || dotIdx == 0 || dotIdx == len(left)-1 {
		return "", "", "", &xerrors.BadEdgeLabel{Label: label}
	}

	fromStr := left[:dotIdx]
	fieldStr := left[dotIdx+1:]
	if fromStr == "" || fieldStr == "" {
		return "", "", "", &xerrors.BadEdgeLabel{Label: label}
	}

	return typegraph.EntityType(fromStr), fieldStr, typegraph.EntityType(right), nil
}
