package queue

import (
	"sort"
	"strconv"
	"strings"
)

// Snapshot maps a unit type to its summed outstanding count. Only positive counts are present.
type Snapshot map[UnitType]int

type Entry struct {
	Unit  UnitType
	Count int
}

type Group struct {
	Kind    GroupKind
	Title   string
	Entries []Entry
}

// Aggregate sums the outstanding count of every order per unit type at now.
// Finished orders contribute nothing and never appear as zero entries.
func Aggregate(orders []Order, now int64) Snapshot {
	s := Snapshot{}
	for _, o := range orders {
		n := Remaining(o, now)
		if n <= 0 {
			continue
		}
		s[o.UnitType] += n
	}
	return s
}

func (s Snapshot) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Groups lays s out in the fixed display catalogs. Empty groups are omitted; units outside the
// catalogs are collected into a trailing "other" group in lexical order.
func (s Snapshot) Groups() []Group {
	var out []Group
	for _, c := range catalogs {
		var entries []Entry
		for _, u := range c.Units {
			if n := s[u]; n > 0 {
				entries = append(entries, Entry{Unit: u, Count: n})
			}
		}
		if len(entries) == 0 {
			continue
		}
		out = append(out, Group{Kind: c.Kind, Title: c.Title, Entries: entries})
	}

	var unknown []UnitType
	for u, n := range s {
		if n > 0 && !IsKnownUnit(u) {
			unknown = append(unknown, u)
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
		g := Group{Kind: GroupOther, Title: otherTitle}
		for _, u := range unknown {
			g.Entries = append(g.Entries, Entry{Unit: u, Count: s[u]})
		}
		out = append(out, g)
	}
	return out
}

// Key serializes s in display order. Two snapshots render identically iff their keys match.
func (s Snapshot) Key() string {
	var b strings.Builder
	for _, g := range s.Groups() {
		b.WriteString(string(g.Kind))
		b.WriteByte(':')
		for i, e := range g.Entries {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(string(e.Unit))
			b.WriteByte('=')
			b.WriteString(strconv.Itoa(e.Count))
		}
		b.WriteByte(';')
	}
	return b.String()
}
