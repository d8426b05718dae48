package assistant

import "github.com/jfarrow/inboxpilot/models"

// Option is one entry in the expected-rule selection list.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExpectedRuleOptions builds the selection list for the rule-mismatch
// dialog: a fixed "None" option, a fixed "New rule" option, then the
// account's rules in their existing order.
func ExpectedRuleOptions(rules []models.Rule) []Option {
	options := make([]Option, 0, len(rules)+2)
	options = append(options,
		Option{ID: NoneRuleID, Name: "❌ None"},
		Option{ID: NewRuleID, Name: "✨ New rule"},
	)
	for _, rule := range rules {
		options = append(options, Option{ID: rule.ID, Name: rule.Name})
	}
	return options
}
