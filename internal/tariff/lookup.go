package tariff

import (
	"strings"

	"tariffbench/internal/domain"
)

// Lookup provides fast in-memory resolution of predicted HTS codes against
// the reference tariff table. It is immutable after construction and safe for
// concurrent access.
type Lookup struct {
	byCode map[string]*domain.TariffEntry
}

// NewLookup builds a Lookup from reference entries. Entry codes are indexed
// digits-only, so both dotted ("8471.41.00") and bare ("84714100") source
// tables resolve the same way. On duplicate codes the first entry wins.
func NewLookup(entries []domain.TariffEntry) *Lookup {
	m := make(map[string]*domain.TariffEntry, len(entries))
	for idx := range entries {
		e := &entries[idx]
		key := digitsOnly(e.Code)
		if key == "" {
			continue
		}
		if _, ok := m[key]; !ok {
			m[key] = e
		}
	}
	return &Lookup{byCode: m}
}

// Size returns the number of distinct codes indexed.
func (l *Lookup) Size() int {
	return len(l.byCode)
}

// Resolve matches a predicted code against the table. It checks the exact
// code first, then falls back through 8- and 6- and 4-digit prefixes.
// The match result records how many digits actually matched; a 10-digit
// prediction resolved at its 6-digit heading reports PrefixLevel 6, so the
// report can show the match was approximate.
func (l *Lookup) Resolve(code string) domain.TariffMatch {
	digits := digitsOnly(code)
	if len(l.byCode) == 0 || digits == "" {
		return domain.TariffMatch{}
	}

	if e, ok := l.byCode[digits]; ok {
		return domain.TariffMatch{
			Entry:       e,
			MatchedCode: e.Code,
			PrefixLevel: len(digits),
			Found:       true,
		}
	}

	for _, prefixLen := range []int{8, 6, 4} {
		if len(digits) <= prefixLen {
			continue
		}
		if e, ok := l.byCode[digits[:prefixLen]]; ok {
			return domain.TariffMatch{
				Entry:       e,
				MatchedCode: e.Code,
				PrefixLevel: prefixLen,
				Found:       true,
			}
		}
	}

	return domain.TariffMatch{}
}

func digitsOnly(code string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, code)
}
