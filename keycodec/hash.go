package keycodec

import (
	"hash/fnv"
	"strconv"
)

// ShortHash returns a deterministic, non-cryptographic short hash of s,
// stable across processes and runs. It is used to name
// intermediate traversal outputs during read-side planning so plans are
// reproducible.
func ShortHash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// StepOutputName derives the stable output name for a planned traversal
// step: a deterministic short hash of the edge label
// plus its depth.
func StepOutputName(edgeLabel string, depth int) string {
	return "step_" + ShortHash(edgeLabel) + "_" + strconv.Itoa(depth)
}
