package core

import (
	"slices"
)

// DefaultTopN is how many interests and software entries the dashboard lists.
const DefaultTopN = 8

// recentLimit is how many of the newest registrations a Summary carries.
const recentLimit = 10

// Count is a value and how often it occurs.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the aggregate view shown on the admin dashboard.
type Summary struct {
	Total             int            `json:"total"`
	Groups            []Count        `json:"groups"`
	Interests         []Count        `json:"interests"`
	Software          []Count        `json:"software"`
	DistinctGroups    int            `json:"distinct_groups"`
	DistinctInterests int            `json:"distinct_interests"`
	DistinctSoftware  int            `json:"distinct_software"`
	Recent            []Registration `json:"recent"`
}

// Summarize aggregates regs from scratch. Groups keep first-encountered
// order; interests and software are ranked by count with ties kept in
// first-encountered order and cut to topN (topN <= 0 keeps all).
func Summarize(regs []Registration, topN int) Summary {
	groups := newTally()
	interests := newTally()
	software := newTally()

	for _, reg := range regs {
		groups.add(reg.GroupName)
		for _, v := range reg.Interests {
			interests.add(v)
		}
		for _, v := range reg.Software {
			software.add(v)
		}
	}

	return Summary{
		Total:             len(regs),
		Groups:            groups.counts(),
		Interests:         top(interests.ranked(), topN),
		Software:          top(software.ranked(), topN),
		DistinctGroups:    groups.len(),
		DistinctInterests: interests.len(),
		DistinctSoftware:  software.len(),
		Recent:            newest(regs, recentLimit),
	}
}

// tally counts values and remembers the order they were first seen.
type tally struct {
	order []string
	n     map[string]int
}

func newTally() *tally {
	return &tally{n: make(map[string]int)}
}

func (t *tally) add(v string) {
	if v == "" {
		return
	}
	if _, seen := t.n[v]; !seen {
		t.order = append(t.order, v)
	}
	t.n[v]++
}

func (t *tally) len() int { return len(t.order) }

func (t *tally) counts() []Count {
	out := make([]Count, 0, len(t.order))
	for _, v := range t.order {
		out = append(out, Count{Name: v, Count: t.n[v]})
	}
	return out
}

func (t *tally) ranked() []Count {
	out := t.counts()
	slices.SortStableFunc(out, func(a, b Count) int {
		return b.Count - a.Count
	})
	return out
}

func top(c []Count, n int) []Count {
	if n > 0 && len(c) > n {
		return c[:n]
	}
	return c
}

// newest returns up to n registrations, most recently created first.
func newest(regs []Registration, n int) []Registration {
	out := slices.Clone(regs)
	slices.SortStableFunc(out, func(a, b Registration) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Percent returns part as a whole-number percentage of total.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return part * 100 / total
}
