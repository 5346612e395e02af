package mapping

import (
	"encoding/json"
	"errors"
	"os"
	"sort"

	"rosterforge/internal/faults"
)

// Groups holds the bfwav equivalence groups in their declared order. Members
// of a group are interchangeable donor sources for each other. Overlapping
// membership across groups is tolerated: the first declared group containing
// a name wins.
type Groups struct {
	Declared [][]string

	memberGroup map[string]int
}

// LoadGroups reads the bfwav groups document.
func LoadGroups(path string) (*Groups, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, faults.Wrap(faults.ErrConfig, "mapping", "load bfwav groups", path, err)
	}

	var doc struct {
		Groups [][]string `json:"groups"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, faults.Wrap(faults.ErrConfig, "mapping", "parse bfwav groups", path, err)
	}
	return NewGroups(doc.Groups), nil
}

// NewGroups builds a Groups index from declared member lists.
func NewGroups(declared [][]string) *Groups {
	groups := &Groups{
		Declared:    declared,
		memberGroup: make(map[string]int),
	}
	for idx, members := range declared {
		for _, member := range members {
			if _, seen := groups.memberGroup[member]; !seen {
				groups.memberGroup[member] = idx
			}
		}
	}
	return groups
}

// MembersOf returns the declared member list of the first group containing
// the asset name, in declared order.
func (g *Groups) MembersOf(name string) ([]string, bool) {
	if g == nil {
		return nil, false
	}
	idx, ok := g.memberGroup[name]
	if !ok {
		return nil, false
	}
	return g.Declared[idx], true
}

// SameGroup reports whether two asset names share a group.
func (g *Groups) SameGroup(a, b string) bool {
	if g == nil {
		return false
	}
	idxA, okA := g.memberGroup[a]
	idxB, okB := g.memberGroup[b]
	return okA && okB && idxA == idxB
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
