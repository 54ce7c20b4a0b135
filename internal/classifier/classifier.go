// Package classifier assigns a spending category to a transaction description
// using an ordered keyword table.
//
// Matching is a lowercase substring test, so "cafeteria" matches "cafe".
// Rules are tried in order and the first hit wins; descriptions that match
// nothing fall back to Other.
package classifier

import "strings"

// Other is the fallback category.
const Other = "Other"

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string
	Keywords []string
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// DefaultRules returns the built-in table. Income comes first so that
// descriptions such as "grocery store refund" are not counted as spending.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "Income", Keywords: []string{"salary", "wage", "payroll", "deposit", "income", "refund"}},
		{Category: "Food", Keywords: []string{"restaurant", "cafe", "grocery", "food", "pizza", "starbucks", "mcdonald"}},
		{Category: "Transportation", Keywords: []string{"gas", "fuel", "uber", "lyft", "taxi", "metro", "bus", "parking"}},
		{Category: "Shopping", Keywords: []string{"amazon", "walmart", "target", "mall", "store", "shopping", "clothes"}},
		{Category: "Bills", Keywords: []string{"electric", "water", "internet", "phone", "rent", "mortgage", "insurance"}},
		{Category: "Entertainment", Keywords: []string{"movie", "netflix", "spotify", "game", "concert", "theater"}},
		{Category: "Healthcare", Keywords: []string{"hospital", "doctor", "pharmacy", "medical", "dental", "health"}},
	}
}

// New copies rules so later changes by the caller cannot affect results.
// Keywords are lowercased and blank ones dropped.
func New(rules []Rule) *Classifier {
	c := &Classifier{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		c.rules = append(c.rules, Rule{Category: r.Category, Keywords: kws})
	}
	return c
}

// NewDefault builds a Classifier over DefaultRules.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Classify returns the category of the first rule with a keyword contained
// in the description, or Other.
func (c *Classifier) Classify(description string) string {
	desc := strings.ToLower(description)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(desc, kw) {
				return rule.Category
			}
		}
	}
	return Other
}

// Categories lists every category the classifier can return, in rule order
// with Other last.
func (c *Classifier) Categories() []string {
	out := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return append(out, Other)
}

// Known reports whether category is part of the vocabulary.
func (c *Classifier) Known(category string) bool {
	if category == Other {
		return true
	}
	for _, r := range c.rules {
		if r.Category == category {
			return true
		}
	}
	return false
}
