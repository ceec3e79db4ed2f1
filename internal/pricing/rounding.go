package pricing

import "math"

// Rule selects how a computed price is quantized before it is stored.
type Rule string

const (
	// RuleKopeck rounds to two decimal places (whole kopecks).
	RuleKopeck Rule = "kopeck"
	// RuleHryvnia rounds to the nearest whole currency unit.
	RuleHryvnia Rule = "hryvnia"
	// RuleNone stores the computed price as-is.
	RuleNone Rule = "none"
)

// ParseRule maps a stored rule name onto a Rule, defaulting to kopeck
// rounding for unknown input.
func ParseRule(name string) Rule {
	switch Rule(name) {
	case RuleHryvnia:
		return RuleHryvnia
	case RuleNone:
		return RuleNone
	default:
		return RuleKopeck
	}
}

// Round quantizes price according to rule. Idempotent for every rule:
// Round(Round(x, r), r) == Round(x, r).
func Round(price float64, rule Rule) float64 {
	switch rule {
	case RuleHryvnia:
		return math.Round(price)
	case RuleNone:
		return price
	default:
		return math.Round(price*100) / 100
	}
}
