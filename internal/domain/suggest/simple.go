package suggest

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/autoorder/autoorder/internal/domain/convert/fields"
	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
)

// suggestClasses is the matching order: specific money/amount classes
// first so "금액" does not get claimed by a price column.
var suggestClasses = []fields.Class{
	fields.ClassAmount,
	fields.ClassQuantity,
	fields.ClassPrice,
	fields.ClassProduct,
	fields.ClassEmail,
	fields.ClassContact,
	fields.ClassAddress,
	fields.ClassCustomer,
	fields.ClassDateTime,
}

// SimpleSuggest pairs template target fields with source fields using the
// shared keyword vocabulary, then fuzzy name similarity. Each source
// column is claimed at most once.
func SimpleSuggest(sourceFields, targetFields []string) *mapping.Spec {
	spec := mapping.NewSpec()
	claimed := make(map[string]bool, len(sourceFields))

	// First pass: both sides agree on a keyword class.
	for _, target := range targetFields {
		for _, class := range suggestClasses {
			if !fields.Matches(class, target) {
				continue
			}
			if source, ok := firstUnclaimed(sourceFields, claimed, func(s string) bool {
				return fields.Matches(class, s)
			}); ok {
				spec.Set(target, mapping.Directive{Kind: mapping.Passthrough, Source: source})
				claimed[source] = true
			}
			break
		}
	}

	// Second pass: direct or fuzzy name similarity for whatever is left.
	for _, target := range targetFields {
		if _, done := spec.Get(target); done {
			continue
		}
		if source, ok := bestNameMatch(target, sourceFields, claimed); ok {
			spec.Set(target, mapping.Directive{Kind: mapping.Passthrough, Source: source})
			claimed[source] = true
		}
	}

	return spec
}

func firstUnclaimed(sourceFields []string, claimed map[string]bool, match func(string) bool) (string, bool) {
	for _, s := range sourceFields {
		if !claimed[s] && match(s) {
			return s, true
		}
	}
	return "", false
}

func bestNameMatch(target string, sourceFields []string, claimed map[string]bool) (string, bool) {
	lower := strings.ToLower(target)
	for _, s := range sourceFields {
		if claimed[s] {
			continue
		}
		ls := strings.ToLower(s)
		if strings.Contains(ls, lower) || strings.Contains(lower, ls) {
			return s, true
		}
	}

	open := make([]string, 0, len(sourceFields))
	for _, s := range sourceFields {
		if !claimed[s] {
			open = append(open, s)
		}
	}
	ranks := fuzzy.RankFindNormalizedFold(target, open)
	if len(ranks) == 0 {
		return "", false
	}
	sort.Sort(ranks)
	return ranks[0].Target, true
}
