// File path: internal/export/record.go
package export

import (
	"strings"
	"time"
)

// Record is a completed application projected into catalog order, ready for
// document generation.
type Record struct {
	Email       string
	SubmittedAt time.Time
	Answers     []Answer
	Files       []string
}

// Answer is one answered field; Key is the catalog key, Label its
// human-readable form.
type Answer struct {
	Key   string
	Value string
}

// Label renders a field key as a title ("gross_pay" -> "Gross Pay").
func (a Answer) Label() string {
	words := strings.Split(a.Key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
