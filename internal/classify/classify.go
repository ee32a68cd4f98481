// Package classify assigns a (source, category) pair to a dataset file from
// its name.
//
// Rules are evaluated in order and the first match wins. Order matters: a
// specific pattern such as MOJ-Release-Seizure-* must come before the more
// general MOJ-Seizure-*, and MOJ-Mortgage-Release-* before MOJ-Mortgage-*.
package classify

import "regexp"

// Unknown values are assigned to files that match no rule.
const (
	UnknownSource   = "UNKNOWN"
	UnknownCategory = "unknown"
)

// Classification is the result of matching a filename.
type Classification struct {
	Source   string
	Category string
}

// Known reports whether a rule matched.
func (c Classification) Known() bool {
	return c.Source != UnknownSource
}

// Rule maps a filename pattern to a classification.
type Rule struct {
	Pattern  *regexp.Regexp
	Source   string
	Category string
}

// newRule anchors pattern at the start of the filename only. Trailing
// characters after a match are allowed.
func newRule(pattern, source, category string) Rule {
	return Rule{
		Pattern:  regexp.MustCompile(`^(?:` + pattern + `)`),
		Source:   source,
		Category: category,
	}
}

// Rules is the ordered rule chain used by Classify.
var Rules = []Rule{
	newRule(`MOJ-Sales-\d{4}-Q\d\.csv`, "MOJ", "sales"),
	newRule(`MOJ-RE-Index-.*\.csv`, "MOJ", "index"),

	newRule(`MOJ-Release-Seizure-.*\.csv`, "MOJ", "release_seizure"),
	newRule(`MOJ-Seizure-.*\.csv`, "MOJ", "seizure"),
	newRule(`MOJ-Deed-Define-Divide-.*\.csv`, "MOJ", "deed_define_divide"),
	newRule(`MOJ-Transfers-.*\.csv`, "MOJ", "transfer"),
	newRule(`MOJ-POA-RE-Fund-.*\.csv`, "MOJ", "poa_fund"),
	newRule(`MOJ-POA-RealEstate-.*\.csv`, "MOJ", "poa"),
	newRule(`MOJ-Mortgage-Release-.*\.csv`, "MOJ", "mortgage_release"),
	newRule(`MOJ-Mortgage-.*\.csv`, "MOJ", "mortgage"),
	newRule(`MOJ-Physical-Registration-.*\.csv`, "MOJ", "physical_reg"),
	newRule(`MOJ-Register-Old-Deed-.*\.csv`, "MOJ", "register_old_deed"),
	newRule(`MOJ-Register-No-Deed-.*\.csv`, "MOJ", "register_no_deed"),
	newRule(`MOJ-Divide-.*\.csv`, "MOJ", "division"),
	newRule(`MOJ-Merge-RE-.*\.csv`, "MOJ", "merge_re"),
	newRule(`MOJ-Merge-Deed-.*\.csv`, "MOJ", "merge_deed"),
	newRule(`MOJ-Enforcement-Sale-.*\.csv`, "MOJ", "enforcement"),
	newRule(`MOJ-Update-Old-Deed-.*\.csv`, "MOJ", "update_old_deed"),
	newRule(`MOJ-Update-Deed-.*\.csv`, "MOJ", "update_deed"),
	newRule(`MOJ-Property-Identity-.*\.csv`, "MOJ", "property_identity"),
	newRule(`MOJ-Ownership-Men-.*\.csv`, "MOJ", "ownership_men"),
	newRule(`MOJ-Ownership-.*\.csv`, "MOJ", "ownership"),
	newRule(`MOJ-RE-Operations-.*\.csv`, "MOJ", "operations"),

	newRule(`Sales-transaction-indicators-.*\.csv`, "REGA", "sales_indicators"),
	newRule(`Rental-indicators-.*\.csv`, "REGA", "rental_indicators"),
	newRule(`quarter-report-SI\.csv`, "REGA", "consolidated"),
	newRule(`Registered-Real-Estate-.*\.csv`, "REGA", "gender_stats"),
}

// Classify returns the classification of the first rule matching filename,
// or UNKNOWN/unknown when nothing matches.
func Classify(filename string) Classification {
	return ClassifyWith(Rules, filename)
}

// ClassifyWith is Classify over an explicit rule chain.
func ClassifyWith(rules []Rule, filename string) Classification {
	for _, r := range rules {
		if r.Pattern.MatchString(filename) {
			return Classification{Source: r.Source, Category: r.Category}
		}
	}
	return Classification{Source: UnknownSource, Category: UnknownCategory}
}

// categoryNotes are file-level notes implied by a category.
var categoryNotes = map[string][]string{
	"index": {"pivot-table export with multi-row headers"},
}

// Notes returns the notes implied by category, if any.
func Notes(category string) []string {
	n := categoryNotes[category]
	if len(n) == 0 {
		return nil
	}
	return append([]string(nil), n...)
}
