// Package detection classifies parsed device payloads with a fixed rule set.
package detection

import (
	"github.com/telhawk-systems/homeids/internal/models"
	"github.com/telhawk-systems/homeids/internal/payload"
)

// Indicator field names recognised in structured payloads.
const (
	IndicatorAttack     = "attack"
	IndicatorBypassAuth = "bypass_auth"
	IndicatorRapidFire  = "rapid_fire"
)

// Rule flags a payload when its boolean indicator field is present and true.
type Rule struct {
	Name      string
	Indicator string
	Reason    string
	Severity  models.Severity
}

// Matches reports whether the rule fires for p. Raw payloads never match.
func (r Rule) Matches(p payload.Payload) bool {
	switch v := p.(type) {
	case payload.Structured:
		return v.Flag(r.Indicator)
	case payload.Raw:
		return false
	default:
		return false
	}
}

// DefaultRules returns the canonical rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "attack_flag",
			Indicator: IndicatorAttack,
			Reason:    "unauthorized attack flag detected",
			Severity:  models.SeverityCritical,
		},
		{
			Name:      "auth_bypass",
			Indicator: IndicatorBypassAuth,
			Reason:    "attempted authentication bypass",
			Severity:  models.SeverityCritical,
		},
		{
			Name:      "rapid_fire",
			Indicator: IndicatorRapidFire,
			Reason:    "rapid-fire command pattern (possible denial-of-service)",
			Severity:  models.SeverityWarning,
		},
	}
}
