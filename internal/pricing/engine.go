package pricing

import "time"

var levels = []Level{LevelAgreement, LevelCounterparty, LevelPriceType, LevelGlobal}

// tier classifies a rule by its most specific scope reference.
func tier(r Rule) Level {
	switch {
	case r.AgreementID != 0:
		return LevelAgreement
	case r.CounterpartyID != 0:
		return LevelCounterparty
	case r.PriceTypeID != 0:
		return LevelPriceType
	default:
		return LevelGlobal
	}
}

// validAt reports whether the rule applies at the given instant.
func validAt(r Rule, now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.StartsAt.After(now) {
		return false
	}
	return r.EndsAt == nil || !r.EndsAt.Before(now)
}

// Resolve picks the single effective rule: the first tier, in descending
// specificity, holding at least one currently valid rule wins, and within the
// winning tier the rule with the latest start date takes precedence. Ties on
// the start date fall back to input order, which the repository keeps stable.
func Resolve(rules []Rule, rc Context, now time.Time) (Rule, Level, error) {
	for _, lvl := range levels {
		var best *Rule
		for i := range rules {
			r := &rules[i]
			if !validAt(*r, now) || tier(*r) != lvl {
				continue
			}
			switch lvl {
			case LevelAgreement:
				if rc.AgreementID == 0 || r.AgreementID != rc.AgreementID {
					continue
				}
			case LevelCounterparty:
				if rc.CounterpartyID == 0 || r.CounterpartyID != rc.CounterpartyID {
					continue
				}
			case LevelPriceType:
				if rc.PriceTypeID == 0 || r.PriceTypeID != rc.PriceTypeID {
					continue
				}
			}
			if best == nil || r.StartsAt.After(best.StartsAt) {
				best = r
			}
		}
		if best != nil {
			return *best, lvl, nil
		}
	}
	return Rule{}, "", ErrNoPriceFound
}
