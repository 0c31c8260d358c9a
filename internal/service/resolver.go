package service

import "time"

type Resolver struct {
	loc       *time.Location
	overrides map[string]string
}

// Override keys are compared verbatim against the stripped reading, so a key
// such as "0411" can never match; 04:11 resolves to "411".
func NewResolver(loc *time.Location, overrides map[string]string) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc, overrides: overrides}
}

func (r *Resolver) Resolve(now time.Time) string {
	candidate := stripHourZero(now.In(r.loc).Format("1504"))
	if team, ok := r.overrides[candidate]; ok {
		return team
	}
	return candidate
}

// stripHourZero drops a leading zero only when the next digit is non-zero:
// "0411" becomes "411" while "0014" is left alone.
func stripHourZero(hhmm string) string {
	if len(hhmm) > 1 && hhmm[0] == '0' && hhmm[1] >= '1' && hhmm[1] <= '9' {
		return hhmm[1:]
	}
	return hhmm
}
