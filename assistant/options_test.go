package assistant

import (
	"testing"

	"github.com/jfarrow/inboxpilot/models"
)

func TestExpectedRuleOptions_OrderAndSentinels(t *testing.T) {
	rules := []models.Rule{
		{ID: "r1", Name: "Bills"},
		{ID: "r2", Name: "Newsletters"},
	}

	options := ExpectedRuleOptions(rules)

	if len(options) != 4 {
		t.Fatalf("len(options) = %d, want 4", len(options))
	}
	if options[0].ID != NoneRuleID || options[0].Name != "❌ None" {
		t.Errorf("options[0] = %+v", options[0])
	}
	if options[1].ID != NewRuleID || options[1].Name != "✨ New rule" {
		t.Errorf("options[1] = %+v", options[1])
	}
	if options[2].ID != "r1" || options[3].ID != "r2" {
		t.Errorf("rule order = %s, %s; want r1, r2", options[2].ID, options[3].ID)
	}
}

func TestExpectedRuleOptions_NoRules(t *testing.T) {
	options := ExpectedRuleOptions(nil)
	if len(options) != 2 {
		t.Fatalf("len(options) = %d, want 2", len(options))
	}
}
