// Package tracking implements per-class instance tracking strategies
// A State is seeded once with the full instance list of a class and then fed a
// fresh list every refresh cycle
package tracking

import (
	"fmt"
	"strings"
)

// ObjectID identifies one live object in the target process
type ObjectID uint64

// Kind selects a tracking policy
type Kind uint8

const (
	// KindIdentity remembers object identities and reports instances new since the previous cycle
	KindIdentity Kind = iota + 1

	// KindDelta reports how many instances were created and removed each cycle and in total
	KindDelta
)

// String returns the config spelling of k
func (k Kind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindDelta:
		return "delta"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind accepts the config spellings ("identity", "delta") and a few aliases
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "identity", "id", "new":
		return KindIdentity, nil
	case "delta", "diff", "creation":
		return KindDelta, nil
	default:
		return 0, fmt.Errorf("tracking: unknown kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Report is a point in time view of a State
type Report struct {
	Kind    Kind `json:"kind"`
	Count   int  `json:"count"`
	Cycles  int  `json:"cycles"`
	Added   int  `json:"added"`
	Removed int  `json:"removed"`

	// cumulative since tracking began (delta only)
	TotalAdded   int `json:"total_added,omitempty"`
	TotalRemoved int `json:"total_removed,omitempty"`

	// instances absent from the previous cycle (identity only), ascending
	NewInstances []ObjectID `json:"new_instances,omitempty"`
}

// State accumulates a class's instance history across cycles
// implementations are not safe for concurrent Update; the tracking store serializes writers
type State interface {
	Kind() Kind
	Update(instances []ObjectID)
	Report() Report
}

// New builds the State for kind seeded with the initial instance list
func New(kind Kind, initial []ObjectID) (State, error) {
	switch kind {
	case KindIdentity:
		return newIdentity(initial), nil
	case KindDelta:
		return newDelta(initial), nil
	default:
		return nil, fmt.Errorf("tracking: unsupported kind %s", kind)
	}
}

type set map[ObjectID]struct{}

func toSet(xs []ObjectID) set {
	s := make(set, len(xs))
	for _, x := range xs {
		s[x] = struct{}{}
	}
	return s
}

// diff returns members of next missing from prev, and the count of prev members missing from next
func diff(prev, next set) (added []ObjectID, removed int) {
	for id := range next {
		if _, ok := prev[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			removed++
		}
	}
	return added, removed
}
