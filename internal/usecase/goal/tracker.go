package goal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// DefaultTrailingBuckets is the number of trailing series intervals the growth is averaged over
const DefaultTrailingBuckets = 3

// Options tunes goal evaluation
type Options struct {
	TrailingBuckets int
}

func (o Options) trailingBuckets() int {
	if o.TrailingBuckets <= 0 {
		return DefaultTrailingBuckets
	}
	return o.TrailingBuckets
}

var daysPerMonth = decimal.NewFromInt(30)

// Projections further out than this are reported as unreachable
const maxProjectionYears = 100

// maxProjectionSteps bounds the bucket count before any date arithmetic: a century of daily buckets
var maxProjectionSteps = decimal.NewFromInt(366 * maxProjectionYears)

// Evaluate measures a goal against a net worth series.
// Logic:
//  1. current = last point's total (or its category value for category-scoped goals)
//  2. progress_ratio = max(current, 0) / target
//  3. growth = change over the trailing intervals of the series divided by the number of
//     buckets they span; a last interval ending mid-bucket counts as the elapsed fraction
//  4. projection: already reached, unreachable (growth unknown or <= 0, or the date lies
//     more than maxProjectionYears past the last point), or the last point advanced by
//     ceil(remaining / growth) buckets
//  5. status: active -> achieved when current >= target; active -> missed once now is
//     past the target date. achieved and missed never change again.
func Evaluate(g *domain.Goal, series *domain.NetWorthSeries, now time.Time, opts Options) domain.GoalProgress {
	previous := g.Status
	if previous == "" {
		previous = domain.GoalStatusActive
	}

	progress := domain.GoalProgress{
		GoalID:          g.ID,
		Name:            g.Name,
		Status:          previous,
		PreviousStatus:  previous,
		TargetAmount:    g.TargetAmount,
		CurrentValue:    decimal.Zero,
		ProgressRatio:   decimal.Zero,
		Remaining:       g.TargetAmount,
		GrowthPerBucket: decimal.Zero,
		Partial:         series != nil && series.Partial,
	}

	var points []domain.NetWorthPoint
	if series != nil {
		points = series.Points
	}
	if len(points) > 0 {
		progress.CurrentValue = valueOf(g, points[len(points)-1])
	}

	held := decimal.Max(progress.CurrentValue, decimal.Zero)
	if g.TargetAmount.IsPositive() {
		progress.ProgressRatio = held.Div(g.TargetAmount)
	}
	reached := held.GreaterThanOrEqual(g.TargetAmount)
	if reached {
		progress.Remaining = decimal.Zero
	} else {
		progress.Remaining = g.TargetAmount.Sub(held)
	}

	var granularity domain.Granularity
	if series != nil {
		granularity = series.Granularity
	}
	growth, known := trailingGrowth(g, points, granularity, opts.trailingBuckets())
	progress.GrowthPerBucket = growth

	switch {
	case reached:
		if len(points) > 0 {
			at := points[len(points)-1].At
			progress.ProjectedDate = &at
		}
	case !known || !growth.IsPositive():
		progress.Unreachable = true
	default:
		progress.ProjectedDate = project(points[len(points)-1].At, progress.Remaining.Div(growth).Ceil(), granularity)
		progress.Unreachable = progress.ProjectedDate == nil
	}

	progress.DaysLeft = daysBetween(now, g.TargetDate)
	if progress.DaysLeft > 0 {
		months := decimal.NewFromInt(int64(progress.DaysLeft)).Div(daysPerMonth)
		required := progress.Remaining.Div(months).Round(2)
		progress.RequiredMonthlyContribution = &required
	}
	if g.MonthlyContribution.IsPositive() {
		months := progress.Remaining.Div(g.MonthlyContribution).Round(1)
		progress.MonthsAtContribution = &months
	}

	if !previous.IsTerminal() {
		switch {
		case reached:
			progress.Status = domain.GoalStatusAchieved
		case now.After(g.TargetDate):
			progress.Status = domain.GoalStatusMissed
		}
	}

	return progress
}

// valueOf is the part of a point the goal is measured against
func valueOf(g *domain.Goal, p domain.NetWorthPoint) decimal.Decimal {
	if g.TracksNetWorth() {
		return p.Total
	}
	return p.ByCategory[g.Scope]
}

// project advances last by steps buckets; nil when that lands beyond the horizon
func project(last time.Time, steps decimal.Decimal, granularity domain.Granularity) *time.Time {
	if steps.GreaterThan(maxProjectionSteps) {
		return nil
	}
	at := granularity.Advance(last, int(steps.IntPart()))
	if at.After(last.AddDate(maxProjectionYears, 0, 0)) {
		return nil
	}
	return &at
}

// trailingGrowth is the change per bucket over the last n intervals of the series.
// known is false when the series has fewer than two points.
func trailingGrowth(g *domain.Goal, points []domain.NetWorthPoint, granularity domain.Granularity, n int) (decimal.Decimal, bool) {
	if len(points) < 2 {
		return decimal.Zero, false
	}
	if n > len(points)-1 {
		n = len(points) - 1
	}
	window := points[len(points)-1-n:]

	elapsed := decimal.Zero
	for i := 0; i+1 < len(window); i++ {
		elapsed = elapsed.Add(bucketFraction(granularity, window[i].At, window[i+1].At))
	}
	if !elapsed.IsPositive() {
		return decimal.Zero, false
	}

	last := valueOf(g, window[len(window)-1])
	first := valueOf(g, window[0])
	return last.Sub(first).Div(elapsed), true
}

// bucketFraction is the share of the bucket starting at from that has elapsed at to, at most 1
func bucketFraction(granularity domain.Granularity, from, to time.Time) decimal.Decimal {
	one := decimal.NewFromInt(1)
	full := granularity.Advance(from, 1).Sub(from)
	if full <= 0 {
		return one
	}
	part := to.Sub(from)
	if part >= full {
		return one
	}
	if part <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(full)))
}

// daysBetween counts whole calendar days from now to the target date, never below zero
func daysBetween(now, target time.Time) int {
	y, m, d := now.UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = target.UTC().Date()
	to := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
