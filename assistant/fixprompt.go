package assistant

import (
	"fmt"
	"strings"

	"github.com/jfarrow/inboxpilot/models"
)

// Sentinel rule ids used by the correction flow alongside real rule ids.
const (
	// NewRuleID means the user wants a new rule created for this email.
	NewRuleID = "NEW_RULE"
	// NoneRuleID means no rule should have been applied.
	NoneRuleID = "NONE_RULE"
)

// maxContentLength bounds the body excerpt embedded in the prompt.
const maxContentLength = 500

// BuildFixMessage produces the correction prompt handed to the assistant
// chat when a user reports that the wrong rule was applied to a message.
//
// expectedRuleName is the name of the rule the user expected, NewRuleID to
// request a new rule, or nil when no rule should have applied. Pure
// function: identical inputs yield identical output.
func BuildFixMessage(message *models.ParsedMessage, result *models.RunRulesResult, expectedRuleName *string) string {
	appliedRule := "No rule"
	reason := "-"
	if result != nil {
		if result.Rule != nil {
			appliedRule = result.Rule.Name
		}
		if result.Reason != "" {
			reason = result.Reason
		}
	}

	var closing string
	switch {
	case expectedRuleName != nil && *expectedRuleName == NewRuleID:
		closing = "I'd like to create a new rule to handle this type of email."
	case expectedRuleName != nil:
		closing = fmt.Sprintf("The rule that should have been applied was: %q", *expectedRuleName)
	default:
		closing = "Instead, no rule should have been applied."
	}

	prompt := fmt.Sprintf(`You applied the wrong rule to this email.
Fix our rules so this type of email is handled correctly in the future.

Email details:
*From*: %s
*Subject*: %s
*Content*: %s

Current rule applied: %s

Reason the rule was chosen:
%s

%s
`,
		message.Headers.From,
		message.Headers.Subject,
		messageContent(message),
		appliedRule,
		reason,
		closing,
	)

	return strings.TrimSpace(prompt)
}

// messageContent picks the best available body excerpt: provider snippet,
// then plain text, then text derived from the HTML part.
func messageContent(message *models.ParsedMessage) string {
	content := message.Snippet
	if content == "" {
		content = message.TextPlain
	}
	if content == "" && message.TextHTML != "" {
		content = ExcerptFromHTML(message.TextHTML)
	}
	return strings.TrimSpace(truncate(content, maxContentLength))
}

// truncate caps s at n runes. No ellipsis: the cap is a size bound for the
// downstream prompt, not a display affordance.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
