package bench

import "github.com/dkoosis/gbbench/internal/config"

// Scaler applies per-language frame divisors.
type Scaler struct {
	rules []config.ScaleRule
}

// NewScaler builds a Scaler from an ordered rule list; the first match wins.
func NewScaler(rules []config.ScaleRule) Scaler {
	return Scaler{rules: append([]config.ScaleRule(nil), rules...)}
}

// Scale divides frames by the first rule matching lang (and variant, when the
// rule names one), truncating toward zero, and never returns less than 1.
func (s Scaler) Scale(lang, variant string, frames int) int {
	for _, r := range s.rules {
		if r.Lang != lang || (r.Variant != "" && r.Variant != variant) {
			continue
		}
		if r.Divisor > 1 {
			frames /= r.Divisor
		}
		break
	}
	return max(frames, 1)
}
