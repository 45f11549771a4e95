package nodeid

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/canonical"
)

// Deterministic derives a node address from its kind, its plugin or
// instance name, and its full configuration. The configuration is hashed
// through its canonical serialization, so key order and source-format
// numeric spelling do not affect the identity, while any change to any
// configuration field does.
func Deterministic(kind, name string, config any) (*Address, error) {
	if !segmentRegex.MatchString(kind) {
		return nil, fmt.Errorf("invalid kind segment %q", kind)
	}
	if !segmentRegex.MatchString(name) {
		return nil, fmt.Errorf("invalid name segment %q", name)
	}
	digest, err := canonical.ShortDigest(config)
	if err != nil {
		return nil, fmt.Errorf("node identity for %s.%s: %w", kind, name, err)
	}
	return &Address{Path: []string{kind, name, digest}}, nil
}
