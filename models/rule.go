package models

import "time"

// Rule is a user-defined email automation rule. Rules are listed in their
// stored position order everywhere they are presented.
type Rule struct {
	ID             string    `json:"id"`
	EmailAccountID string    `json:"emailAccountId"`
	Name           string    `json:"name"`
	Position       int       `json:"position"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RunRulesResult is the outcome of running the rule engine against a
// message: the rule that matched (nil when none did) and the engine's
// stated reason for the choice.
type RunRulesResult struct {
	Rule   *Rule  `json:"rule"`
	Reason string `json:"reason"`
}
