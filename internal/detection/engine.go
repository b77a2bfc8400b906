package detection

import (
	"github.com/telhawk-systems/homeids/internal/models"
	"github.com/telhawk-systems/homeids/internal/payload"
)

// Classification is the engine's decision for one payload.
type Classification struct {
	IsAttack bool
	Reason   string
	Severity models.Severity
	Rule     string   // Name of the rule that determined Reason/Severity
	Fired    []string // Every rule that fired, in evaluation order
}

// Benign is the classification for payloads no rule fires on.
func Benign() Classification {
	return Classification{Severity: models.SeverityInfo}
}

// Engine evaluates an ordered, immutable rule list.
//
// Every rule is evaluated for every payload. When several rules fire, the last
// one in registration order decides the reported reason and severity.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine over rules. With no rules it uses DefaultRules.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	owned := make([]Rule, len(rules))
	copy(owned, rules)
	return &Engine{rules: owned}
}

// Rules returns a copy of the engine's rules in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Classify runs every rule against p.
func (e *Engine) Classify(p payload.Payload) Classification {
	result := Benign()

	for _, rule := range e.rules {
		if !rule.Matches(p) {
			continue
		}
		result.IsAttack = true
		result.Reason = rule.Reason
		result.Severity = rule.Severity
		result.Rule = rule.Name
		result.Fired = append(result.Fired, rule.Name)
	}

	return result
}
