package gmail

import (
	"fmt"
	"sort"
	"strings"
)

// BuildQuery forms the search query selecting every message from sender,
// narrowed by the optional rules. It is a pure function: the same inputs
// always yield the same query string.
func BuildQuery(sender string, rules *Rules) Query {
	parts := []string{
		fmt.Sprintf(`from:"%s"`, strings.TrimSpace(sender)),
		"in:anywhere",
	}
	if rules == nil {
		return Query{Raw: strings.Join(parts, " ")}
	}
	if rules.SkipStarred {
		parts = append(parts, "-is:starred")
	}
	if rules.SkipImportant {
		parts = append(parts, "-is:important")
	}
	if rules.OlderThanDays > 0 {
		parts = append(parts, fmt.Sprintf("older_than:%dd", rules.OlderThanDays))
	}
	protected := append([]string(nil), rules.ProtectedLabels...)
	sort.Strings(protected)
	for _, lbl := range protected {
		parts = append(parts, fmt.Sprintf(`-label:"%s"`, lbl))
	}
	for _, term := range rules.ExtraTerms {
		term = strings.TrimSpace(term)
		if term != "" {
			parts = append(parts, term)
		}
	}
	return Query{Raw: strings.Join(parts, " ")}
}
