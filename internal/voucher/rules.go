package voucher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/marketplace-cart/internal/pricing"
)

// ErrInvalidRule is returned when a configured rule cannot be parsed.
var ErrInvalidRule = errors.New("invalid coupon rule")

// ParseRules reads a comma-separated list of CODE:kind:value entries, e.g.
// "SAVE10:percent:10,WELCOME:fixed:15". Percent values may carry decimals.
func ParseRules(spec string) ([]Rule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var rules []Rule
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRule, entry)
		}
		code := Normalize(parts[0])
		if code == "" {
			return nil, fmt.Errorf("%w: %q has no code", ErrInvalidRule, entry)
		}
		rule := Rule{Code: code, Kind: Kind(strings.ToLower(strings.TrimSpace(parts[1])))}
		switch rule.Kind {
		case KindPercent:
			pct, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
			if err != nil || !pct.IsPositive() || pct.GreaterThan(decimal.NewFromInt(100)) {
				return nil, fmt.Errorf("%w: %q percent must be in (0, 100]", ErrInvalidRule, entry)
			}
			rule.PercentBps = int32(pct.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
			if rule.PercentBps == 0 {
				return nil, fmt.Errorf("%w: %q percent rounds to zero basis points", ErrInvalidRule, entry)
			}
			rule.Description = pct.String() + "% off"
		case KindFixed:
			value, err := pricing.ParseMoney(parts[2])
			if err != nil || value <= 0 {
				return nil, fmt.Errorf("%w: %q amount must be positive", ErrInvalidRule, entry)
			}
			rule.Value = value
			rule.Description = pricing.Format(value) + " off"
		default:
			return nil, fmt.Errorf("%w: %q unknown kind", ErrInvalidRule, entry)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// TableFromSpec returns the table described by spec, or the default table
// when spec is empty.
func TableFromSpec(spec string) (Table, error) {
	rules, err := ParseRules(spec)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return DefaultTable(), nil
	}
	return NewTable(rules...), nil
}
