package leadstore

import (
	"fmt"
	"strings"

	"github.com/FranksOps/leadfinder/internal/lead"
)

// Policy selects how aggressively appended rows are deduplicated.
type Policy string

const (
	// DedupeKey keeps the first row per (email, url).
	DedupeKey Policy = "key"
	// DedupeDomain additionally keeps only the first row per email domain.
	DedupeDomain Policy = "domain"
)

// ParsePolicy maps a config value to a Policy. Empty means DedupeKey.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DedupeKey:
		return DedupeKey, nil
	case DedupeDomain:
		return DedupeDomain, nil
	default:
		return "", fmt.Errorf("leadstore: unknown dedupe policy %q", s)
	}
}

// Dedupe returns rows with later duplicates removed, first occurrence wins.
// The input is not modified.
func Dedupe(rows []lead.Lead, p Policy) []lead.Lead {
	out := make([]lead.Lead, 0, len(rows))
	seen := make(map[lead.Key]struct{}, len(rows))
	for _, r := range rows {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	if p != DedupeDomain {
		return out
	}

	domains := make(map[string]struct{}, len(out))
	collapsed := out[:0]
	for _, r := range out {
		d := lead.Domain(r.Email)
		if _, ok := domains[d]; ok {
			continue
		}
		domains[d] = struct{}{}
		collapsed = append(collapsed, r)
	}
	return collapsed
}

// Tail returns the last n rows.
func Tail(rows []lead.Lead, n int) []lead.Lead {
	if n <= 0 {
		return nil
	}
	if len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}
