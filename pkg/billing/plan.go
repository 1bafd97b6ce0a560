package billing

import "time"

type PlanType string

const (
	PlanDaily   PlanType = "daily"
	PlanWeekly  PlanType = "weekly"
	PlanMonthly PlanType = "monthly"
)

// Billed amounts in kobo
const (
	AmountDaily   int64 = 10000
	AmountWeekly  int64 = 50000
	AmountMonthly int64 = 150000
)

var amountPlans = map[int64]PlanType{
	AmountDaily:   PlanDaily,
	AmountWeekly:  PlanWeekly,
	AmountMonthly: PlanMonthly,
}

func (p PlanType) IsValid() bool {
	switch p {
	case PlanDaily, PlanWeekly, PlanMonthly:
		return true
	}
	return false
}

// PlanFromAmount maps a billed amount to its plan. Unknown amounts are billed as daily.
func PlanFromAmount(amount int64) PlanType {
	if plan, ok := amountPlans[amount]; ok {
		return plan
	}
	return PlanDaily
}

// AmountForPlan is the inverse of PlanFromAmount.
func AmountForPlan(plan PlanType) int64 {
	switch plan {
	case PlanWeekly:
		return AmountWeekly
	case PlanMonthly:
		return AmountMonthly
	default:
		return AmountDaily
	}
}

// ComputeEndDate returns the end of the billing cycle starting at start.
//
// Monthly cycles add one calendar month. When the target month is shorter
// than the start day, the date is clamped to the last day of the target month
// (Jan 31 -> Feb 28, or Feb 29 in leap years). The time of day is preserved.
func ComputeEndDate(start time.Time, plan PlanType) time.Time {
	switch plan {
	case PlanWeekly:
		return start.AddDate(0, 0, 7)
	case PlanMonthly:
		return addMonthClamped(start)
	default:
		return start.AddDate(0, 0, 1)
	}
}

func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
