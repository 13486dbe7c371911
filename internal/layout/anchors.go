package layout

import (
	"sort"
	"strconv"
	"strings"
)

// Anchor is one externally supplied ground-truth value. Key is either an
// entity index ("30") or an entity name ("Aberdeen").
type Anchor struct {
	Key   string
	Value int64
}

// Anchors groups anchor values by dataset name ("A", "B").
type Anchors map[string][]Anchor

// Resolve maps anchors onto entity indices. Names are matched
// case-insensitively against names; numeric keys must be below count.
// Keys that match nothing are returned in unresolved.
func Resolve(anchors []Anchor, names []string, count int) (byIndex map[int]int64, unresolved []string) {
	byIndex = make(map[int]int64, len(anchors))
	lookup := make(map[string]int, len(names))
	for i, n := range names {
		k := strings.ToUpper(strings.TrimSpace(n))
		if k == "" {
			continue
		}
		if _, dup := lookup[k]; !dup {
			lookup[k] = i
		}
	}
	for _, a := range anchors {
		if idx, err := strconv.Atoi(strings.TrimSpace(a.Key)); err == nil {
			if idx >= 0 && idx < count {
				byIndex[idx] = a.Value
				continue
			}
			unresolved = append(unresolved, a.Key)
			continue
		}
		if idx, ok := lookup[strings.ToUpper(strings.TrimSpace(a.Key))]; ok && idx < count {
			byIndex[idx] = a.Value
			continue
		}
		unresolved = append(unresolved, a.Key)
	}
	sort.Strings(unresolved)
	return byIndex, unresolved
}
