package reconcile

import (
	"fmt"
	"strings"
)

// OwnershipMap maps database owners to tracker user identities.
type OwnershipMap map[string]string

func (m OwnershipMap) Resolve(owner string) (string, bool) {
	identity, ok := m[owner]
	if !ok || strings.TrimSpace(identity) == "" {
		return "", false
	}
	return identity, true
}

func (m OwnershipMap) Lookup(owner string) (string, error) {
	identity, ok := m.Resolve(owner)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrOwnershipMiss, owner)
	}
	return identity, nil
}

// Merge returns a copy of m overlaid with other.
func (m OwnershipMap) Merge(other OwnershipMap) OwnershipMap {
	out := make(OwnershipMap, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
