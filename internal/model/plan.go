package model

import (
	"fmt"
	"time"
)

// Plan describes a purchasable entry plan: a display name, the price
// in whole rupees and the session duration it grants.
type Plan struct {
	Code      string
	Name      string
	AmountINR int
	Duration  time.Duration
}

// The venue currently sells two plans. Codes match the values posted
// by the entry form.
var plans = map[string]Plan{
	"premium_50":  {Code: "premium_50", Name: "Premium", AmountINR: 50, Duration: 15 * time.Minute},
	"standard_40": {Code: "standard_40", Name: "Standard", AmountINR: 40, Duration: 15 * time.Minute},
}

// ParsePlan resolves a plan selection code. Unknown codes are an
// error rather than a silent fallback so a stale form cannot issue a
// zero-duration ticket.
func ParsePlan(code string) (Plan, error) {
	p, ok := plans[code]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan %q", code)
	}
	return p, nil
}
