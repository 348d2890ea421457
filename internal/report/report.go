// Package report builds hierarchical free/total-size reports for engines,
// clusters, and planner runs. Adapted from the teacher repository's
// utils.MemReport, retargeted from heap-usage reporting onto address-space
// accounting and formatted with github.com/dustin/go-humanize the way the
// teacher's benchmark harness formats byte counts.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Size is a single node in a size report tree: a named span of address
// space with how much of it is free, plus any sub-spans (cluster slots,
// planner descriptors, ...).
type Size struct {
	Name     string `json:"name"`
	Free     uint64 `json:"free_bytes"`
	Total    uint64 `json:"total_bytes"`
	Children []Size `json:"children,omitempty"`
}

// String renders the report as an indented tree with humanized byte counts.
func (r Size) String() string {
	var sb strings.Builder
	r.build(&sb, 0)
	return sb.String()
}

func (r Size) build(sb *strings.Builder, indent int) {
	prefix := strings.Repeat("  ", indent)
	fmt.Fprintf(sb, "%s- %s: %s free / %s total\n", prefix, r.Name,
		humanize.Bytes(r.Free), humanize.Bytes(r.Total))
	for _, child := range r.Children {
		child.build(sb, indent+1)
	}
}

// JSON returns a JSON encoding of the report, or an error payload if
// marshaling fails.
func (r Size) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(b)
}
