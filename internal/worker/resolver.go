package worker

import (
	"encoding/json"
	"strings"
)

// Resolver matches the identifiers a batch requested against whatever keys
// the enrichment service actually returned. The service may echo identifiers
// imperfectly, so resolution is a swappable strategy rather than a map
// lookup baked into the processor.
type Resolver interface {
	Resolve(requested []string, returned map[string]json.RawMessage) map[string]json.RawMessage
}

// ExactResolver resolves only identifiers the service echoed back verbatim.
// This is the default strategy.
type ExactResolver struct{}

// Resolve picks the requested identifiers present in the returned map.
func (ExactResolver) Resolve(requested []string, returned map[string]json.RawMessage) map[string]json.RawMessage {
	resolved := make(map[string]json.RawMessage)
	for _, id := range requested {
		if record, ok := returned[id]; ok {
			resolved[id] = record
		}
	}
	return resolved
}

// LooseResolver resolves exact matches first, then falls back to a normalized
// containment match on the title segment of the identifier. The fallback can
// misattribute results when one title is a textual substring of another, so
// it is opt-in and requires a minimum normalized length before it will match.
type LooseResolver struct {
	// MinLength is the shortest normalized title eligible for fuzzy
	// matching. If zero, a conservative default of 10 is used.
	MinLength int
}

// Resolve implements Resolver.
func (r LooseResolver) Resolve(requested []string, returned map[string]json.RawMessage) map[string]json.RawMessage {
	resolved := ExactResolver{}.Resolve(requested, returned)
	if len(resolved) == len(requested) {
		return resolved
	}

	minLen := r.MinLength
	if minLen <= 0 {
		minLen = 10
	}

	// Normalize the returned keys that were not consumed by an exact match.
	type candidate struct {
		key  string
		norm string
	}
	var candidates []candidate
	for key := range returned {
		if _, taken := resolved[key]; taken {
			continue
		}
		candidates = append(candidates, candidate{key: key, norm: normalizeTitle(key)})
	}

	for _, id := range requested {
		if _, ok := resolved[id]; ok {
			continue
		}
		norm := normalizeTitle(id)
		if len(norm) < minLen {
			continue
		}
		for _, c := range candidates {
			if len(c.norm) < minLen {
				continue
			}
			if strings.Contains(c.norm, norm) || strings.Contains(norm, c.norm) {
				resolved[id] = returned[c.key]
				break
			}
		}
	}
	return resolved
}

// normalizeTitle reduces an identifier to its lowercased, whitespace-collapsed
// title segment (the part before the first '|').
func normalizeTitle(id string) string {
	title := id
	if i := strings.Index(id, "|"); i >= 0 {
		title = id[:i]
	}
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
