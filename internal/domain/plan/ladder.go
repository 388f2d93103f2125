// Package plan models the ordered list of subscription tiers and each user's
// effective tier.
package plan

import (
	"fmt"
	"strings"
)

// Tier is one rung of the plan ladder. Price is in minor currency units.
type Tier struct {
	Name       string
	Price      int64
	Currency   string
	PeriodDays int
}

// Ladder ranks tiers by their position in the configured list, lowest first.
type Ladder struct {
	tiers       []Tier
	rank        map[string]int
	defaultTier string
}

// NewLadder validates the configured tiers. An empty defaultTier selects the
// lowest tier.
func NewLadder(tiers []Tier, defaultTier string) (*Ladder, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("plan ladder requires at least one tier")
	}

	l := &Ladder{
		tiers: make([]Tier, 0, len(tiers)),
		rank:  make(map[string]int, len(tiers)),
	}
	for i, t := range tiers {
		name := normalizeName(t.Name)
		if name == "" {
			return nil, fmt.Errorf("tier %d has no name", i)
		}
		if strings.Contains(name, ",") {
			return nil, fmt.Errorf("tier %q contains a comma", name)
		}
		if _, dup := l.rank[name]; dup {
			return nil, fmt.Errorf("duplicate tier %q", name)
		}
		if t.Price < 0 {
			return nil, fmt.Errorf("tier %q has negative price", name)
		}
		t.Name = name
		t.Currency = strings.ToUpper(strings.TrimSpace(t.Currency))
		l.rank[name] = i
		l.tiers = append(l.tiers, t)
	}

	l.defaultTier = l.tiers[0].Name
	if d := normalizeName(defaultTier); d != "" {
		if _, ok := l.rank[d]; !ok {
			return nil, fmt.Errorf("default tier %q is not in the ladder", d)
		}
		l.defaultTier = d
	}
	return l, nil
}

// MustNewLadder panics on invalid input. Intended for tests and static tables.
func MustNewLadder(tiers []Tier, defaultTier string) *Ladder {
	l, err := NewLadder(tiers, defaultTier)
	if err != nil {
		panic(err)
	}
	return l
}

// Rank returns the tier's position, or -1 for an unknown tier.
func (l *Ladder) Rank(name string) int {
	r, ok := l.rank[normalizeName(name)]
	if !ok {
		return -1
	}
	return r
}

// Known reports whether name is a configured tier.
func (l *Ladder) Known(name string) bool {
	return l.Rank(name) >= 0
}

// Effective maps an empty or unknown stored tier to the default tier.
func (l *Ladder) Effective(name string) string {
	if n := normalizeName(name); l.Known(n) {
		return n
	}
	return l.defaultTier
}

// Satisfies reports whether a user on userTier meets required. An unknown
// required tier is never satisfied.
func (l *Ladder) Satisfies(userTier, required string) bool {
	need := l.Rank(required)
	if need < 0 {
		return false
	}
	return l.Rank(l.Effective(userTier)) >= need
}

// Max returns whichever tier ranks higher.
func (l *Ladder) Max(a, b string) string {
	a, b = l.Effective(a), l.Effective(b)
	if l.Rank(b) > l.Rank(a) {
		return b
	}
	return a
}

// Highest folds base and every extra tier into the highest-ranked effective
// tier. Unknown names count as the default.
func (l *Ladder) Highest(base string, others ...string) string {
	out := l.Effective(base)
	for _, o := range others {
		out = l.Max(out, o)
	}
	return out
}

func (l *Ladder) Tier(name string) (Tier, bool) {
	r := l.Rank(name)
	if r < 0 {
		return Tier{}, false
	}
	return l.tiers[r], true
}

func (l *Ladder) Default() string {
	return l.defaultTier
}

func (l *Ladder) Tiers() []Tier {
	out := make([]Tier, len(l.tiers))
	copy(out, l.tiers)
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
