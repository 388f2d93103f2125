package catalog

import "strings"

// Policy decides what happens to content that has no rule. Categories listed
// as free-by-default are open; everything else unregistered is closed.
type Policy struct {
	freeByDefault map[string]struct{}
}

func NewPolicy(freeByDefault []string) Policy {
	m := make(map[string]struct{}, len(freeByDefault))
	for _, c := range freeByDefault {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			m[c] = struct{}{}
		}
	}
	return Policy{freeByDefault: m}
}

func (p Policy) IsFreeByDefault(contentType string) bool {
	_, ok := p.freeByDefault[strings.ToLower(strings.TrimSpace(contentType))]
	return ok
}
