// File path: internal/flow/catalog.go
package flow

import (
	"fmt"
	"regexp"
	"strings"
)

// Well-known field keys that receive bespoke engine handling.
const (
	FieldEmail          = "email"
	FieldBankStatements = "bank_statements"
)

// RuleKind discriminates the declarative validation variants a Field may
// carry. Keeping rules as data keeps the catalog itself free of behavior.
type RuleKind int

const (
	// RuleNone accepts any non-empty input.
	RuleNone RuleKind = iota
	// RuleRegexp accepts input matching Pattern.
	RuleRegexp
	// RuleDigits accepts input consisting solely of digits with a length
	// between MinDigits and MaxDigits inclusive.
	RuleDigits
	// RulePredicate defers to a custom pure predicate.
	RulePredicate
)

// Rule is a tagged validation variant attached to a Field.
type Rule struct {
	Kind      RuleKind
	Pattern   *regexp.Regexp
	MinDigits int
	MaxDigits int
	Predicate func(string) bool
}

// Validate reports whether the raw text satisfies the rule. Rules are pure
// and deterministic; they never touch state.
func (r Rule) Validate(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	switch r.Kind {
	case RuleRegexp:
		return r.Pattern != nil && r.Pattern.MatchString(trimmed)
	case RuleDigits:
		for _, ch := range trimmed {
			if ch < '0' || ch > '9' {
				return false
			}
		}
		if r.MinDigits > 0 && len(trimmed) < r.MinDigits {
			return false
		}
		if r.MaxDigits > 0 && len(trimmed) > r.MaxDigits {
			return false
		}
		return true
	case RulePredicate:
		return r.Predicate != nil && r.Predicate(trimmed)
	default:
		return true
	}
}

// Field is one entry in the questionnaire. Ordering within the catalog is
// the canonical question order for the lifetime of a flow instance.
type Field struct {
	Key            string
	Prompt         string
	Rule           Rule
	RequiresUpload bool
}

// Catalog is the fixed ordered list of fields driving the pre-approval
// questionnaire.
type Catalog struct {
	fields []Field
	index  map[string]int
}

// NewCatalog builds a catalog, rejecting duplicate or empty keys.
func NewCatalog(fields []Field) (*Catalog, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("catalog requires at least one field")
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			return nil, fmt.Errorf("field %d: key required", i)
		}
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("duplicate field key %q", key)
		}
		index[key] = i
	}
	return &Catalog{fields: fields, index: index}, nil
}

// Len returns the number of fields in the catalog.
func (c *Catalog) Len() int { return len(c.fields) }

// Field returns the field at position i. Callers must keep i in range.
func (c *Catalog) Field(i int) Field { return c.fields[i] }

// Fields returns a copy of the ordered field list.
func (c *Catalog) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Position returns the index of the field with the given key.
func (c *Catalog) Position(key string) (int, bool) {
	i, ok := c.index[key]
	return i, ok
}

// Validate applies the field's rule to the raw text.
func (c *Catalog) Validate(f Field, raw string) bool {
	return f.Rule.Validate(raw)
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	// Monetary amounts may carry thousands separators and a decimal point.
	amountRule = Rule{Kind: RulePredicate, Predicate: func(v string) bool {
		cleaned := strings.ReplaceAll(strings.ReplaceAll(v, ",", ""), ".", "")
		if cleaned == "" {
			return false
		}
		for _, ch := range cleaned {
			if ch < '0' || ch > '9' {
				return false
			}
		}
		return true
	}}
)

// DefaultCatalog returns the production pre-approval questionnaire. The
// email field leads so a fresh flow opens with the identity confirmation,
// and the bank-statement upload closes the flow and triggers submission.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog([]Field{
		{Key: FieldEmail, Prompt: "Email Address", Rule: Rule{Kind: RuleRegexp, Pattern: emailPattern}},
		{Key: "borrower_name", Prompt: "Please enter Borrower First Name and Last Name."},
		{Key: "co_borrower_name", Prompt: "Co-Borrower First Name & Last Name (If applicable)."},
		{Key: "phone", Prompt: "Phone Number", Rule: Rule{Kind: RuleDigits, MinDigits: 10, MaxDigits: 15}},
		{Key: "purchase_price", Prompt: "Purchase Price", Rule: amountRule},
		{Key: "loan_amount", Prompt: "Loan Amount", Rule: amountRule},
		{Key: "down_payment", Prompt: "Down Payment (The source for these funds should be readily accessible such as cash, stock, 401K, CDs, etc.)"},
		{Key: "property_address", Prompt: "Property Address (put TBD if unknown)"},
		{Key: "gross_pay", Prompt: "Average Annual Documented Gross Pay over the last 2 years"},
		{Key: "foreign_assets", Prompt: "Do you declare foreign assets and investments in your tax returns?"},
		{Key: "credit_score", Prompt: "What is the average credit score reflected across all your banks and credit cards (Don't use Credit Karma)?"},
		{Key: FieldBankStatements, Prompt: "Please upload your most recent bank statements.", RequiresUpload: true},
	})
	if err != nil {
		panic(err)
	}
	return catalog
}
