// Package nodeid models node identity as a structured, dot-separated
// address. Identities are deterministic: the final segment is a truncated
// digest of the node's canonical configuration, so the same configuration
// produces the same address across separate builds. Checkpoint resume
// depends on this property.
package nodeid

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex validates a single address segment.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Address is the structured representation of a unique node identifier,
// modeled as a path of segments: kind, name, and config digest.
type Address struct {
	Path []string
}

// New builds an address from path segments.
func New(segments ...string) *Address {
	return &Address{Path: segments}
}

// String serializes the address into its canonical dot-joined form.
func (a *Address) String() string {
	if a == nil {
		return ""
	}
	return strings.Join(a.Path, ".")
}

// Kind returns the first path segment, the node-kind prefix.
func (a *Address) Kind() string {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	return a.Path[0]
}

// Equal checks for deep equality between two addresses.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	if len(a.Path) != len(other.Path) {
		return false
	}
	for i := range a.Path {
		if a.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}

// Parse creates an Address by parsing its canonical string form.
func Parse(rawID string) (*Address, error) {
	if rawID == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}
	addr := &Address{}
	for _, segment := range strings.Split(rawID, ".") {
		if !segmentRegex.MatchString(segment) {
			return nil, fmt.Errorf("invalid path segment %q in %q", segment, rawID)
		}
		addr.Path = append(addr.Path, segment)
	}
	return addr, nil
}
