package filter

import (
	"maps"
	"strconv"

	"rf2boot/internal/engine/rf2"
)

// ModuleRule keeps rows whose module is one of modules.
func ModuleRule(modules ...string) Rule {
	allowed := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		allowed[m] = struct{}{}
	}
	return NewRule("module", func(row rf2.Row) bool {
		_, ok := allowed[row.Meta().ModuleID]
		return ok
	})
}

// ModuleTimeRule keeps rows newer than what was already imported for their
// module. Rows with a blank effective time, rows of modules without a cutoff
// and rows whose effective time is not a number are kept.
func ModuleTimeRule(cutoffs map[string]int) Rule {
	cutoffs = maps.Clone(cutoffs)
	return NewRule("module_effective_time", func(row rf2.Row) bool {
		meta := row.Meta()
		if meta.EffectiveTime == "" {
			return true
		}
		cutoff, ok := cutoffs[meta.ModuleID]
		if !ok {
			return true
		}
		t, err := strconv.Atoi(meta.EffectiveTime)
		if err != nil {
			return true
		}
		return t > cutoff
	})
}

// EffectiveRule keeps only the rows recorded as current by a sealed ledger.
func EffectiveRule(l *Ledger) Rule {
	return NewRule("effective_version", l.InEffect)
}
