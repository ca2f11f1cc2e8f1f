package sampling

import (
	"strings"
)

// UsageCounts is the read side of a name-usage counter.
type UsageCounts interface {
	Count(name string) int
}

// NameUsage counts how often each display name has been used in one
// construction run. Counts only ever increase. Not safe for concurrent use;
// each run owns its own counter.
type NameUsage struct {
	counts map[string]int
}

func NewNameUsage() *NameUsage {
	return &NameUsage{counts: make(map[string]int)}
}

func (u *NameUsage) Count(name string) int {
	return u.counts[strings.TrimSpace(name)]
}

// Increment records one use; blank names are ignored.
func (u *NameUsage) Increment(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	u.counts[name]++
}

// Max returns the highest count of any name.
func (u *NameUsage) Max() int {
	max := 0
	for _, n := range u.counts {
		if n > max {
			max = n
		}
	}
	return max
}

// Len returns the number of distinct names used.
func (u *NameUsage) Len() int { return len(u.counts) }

// withPending counts one extra use of a name drawn earlier in the same trial.
type withPending struct {
	base UsageCounts
	name string
}

func (w withPending) Count(name string) int {
	n := w.base.Count(name)
	if strings.TrimSpace(name) == strings.TrimSpace(w.name) {
		n++
	}
	return n
}
