package quality

import (
	"math"
	"strings"
	"time"

	"github.com/sells-group/custvalue-cli/internal/model"
)

// CategoryRFMInput tags in-memory checks over the RFM input table.
const CategoryRFMInput Category = "rfm_input"

// MaxRecencyDays bounds plausible recency values (ten years). Exceeding it
// only warns; any non-negative recency is scoreable.
const MaxRecencyDays = 3650

// aovTolerance is the relative difference allowed between avg_order_value
// and monetary/frequency.
const aovTolerance = 0.01

type customerRule struct {
	name    string
	violate func(c model.Customer) bool
}

var customerRules = []customerRule{
	{"customer_id present", func(c model.Customer) bool { return strings.TrimSpace(c.CustomerID) == "" }},
	{"recency >= 0", func(c model.Customer) bool { return c.Recency < 0 }},
	{"frequency >= 1", func(c model.Customer) bool { return c.Frequency < 1 }},
	{"monetary > 0", func(c model.Customer) bool { return !(c.Monetary > 0) || math.IsInf(c.Monetary, 0) }},
	{"avg_order_value matches monetary/frequency", func(c model.Customer) bool {
		if c.Frequency < 1 {
			return false
		}
		want := c.Monetary / float64(c.Frequency)
		return !(math.Abs(c.AvgOrderValue-want) <= aovTolerance*math.Abs(want))
	}},
}

// advisoryRules warn on implausible but scoreable rows.
var advisoryRules = []customerRule{
	{"recency within ten years", func(c model.Customer) bool { return c.Recency > MaxRecencyDays }},
}

// CheckCustomers validates the RFM input table in memory. Each rule reports
// its violation count; the table must also be non-empty with unique ids.
// Advisory rules report WARN instead of FAIL and leave OK() unaffected.
func CheckCustomers(customers []model.Customer) *Report {
	start := time.Now()
	now := start.UTC()
	report := &Report{}

	count := func(name string, actual float64, expected float64, op Operator, advisory bool) {
		res := Result{
			Name:     "customers: " + name,
			Category: CategoryRFMInput,
			Actual:   &actual,
			Expected: expected,
			Operator: op,
			RanAt:    now,
			Status:   StatusFail,
		}
		switch {
		case op.Compare(actual, expected):
			res.Status = StatusPass
		case advisory:
			res.Status = StatusWarn
		}
		report.add(res)
	}

	count("has rows", float64(len(customers)), 0, OpGreater, false)

	seen := make(map[string]struct{}, len(customers))
	dups := 0
	for _, c := range customers {
		if _, ok := seen[c.CustomerID]; ok {
			dups++
			continue
		}
		seen[c.CustomerID] = struct{}{}
	}
	count("customer_id unique", float64(dups), 0, OpEqual, false)

	violations := func(rule customerRule) float64 {
		n := 0
		for _, c := range customers {
			if rule.violate(c) {
				n++
			}
		}
		return float64(n)
	}
	for _, rule := range customerRules {
		count(rule.name, violations(rule), 0, OpEqual, false)
	}
	for _, rule := range advisoryRules {
		count(rule.name, violations(rule), 0, OpEqual, true)
	}

	for _, res := range report.Results {
		if !res.Passed() {
			logResult(res)
		}
	}
	report.Elapsed = time.Since(start)
	return report
}
