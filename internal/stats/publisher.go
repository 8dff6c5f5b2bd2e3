package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fplscraper/fplscraper/pkg/log"
	"github.com/fplscraper/fplscraper/pkg/models"
)

const source = "fpl"

// Series identifies one cumulative statistic series and its metadata.
type Series struct {
	ID     string
	Name   string
	Unit   string
	Source string
}

// Store is the external statistics collaborator: the last recorded
// cumulative sum per series, and batch appends of new points.
type Store interface {
	LastSum(seriesID string) (sum float64, start time.Time, ok bool, err error)
	Append(series Series, points []models.StatisticPoint) error
}

// Publisher converts hourly readings into cumulative statistic points and
// publishes them forward-only, so re-publishing the same input after a
// successful publish yields zero additional points.
type Publisher struct {
	store Store
}

// New creates a publisher on top of the given store
func New(store Store) *Publisher {
	return &Publisher{store: store}
}

// UsageSeriesID returns the hourly kWh series ID for an account
func UsageSeriesID(account string) string {
	return fmt.Sprintf("%s:%s_hourly_usage", source, account)
}

// CostSeriesID returns the hourly cost series ID for an account
func CostSeriesID(account string) string {
	return fmt.Sprintf("%s:%s_hourly_cost", source, account)
}

// BucketStart maps a reading's end timestamp to the hour bucket it
// describes: the read time truncated to the hour, minus one hour.
func BucketStart(readTime time.Time) time.Time {
	top := time.Date(readTime.Year(), readTime.Month(), readTime.Day(),
		readTime.Hour(), 0, 0, 0, readTime.Location())
	return top.Add(-time.Hour)
}

// PublishHourly publishes the cost and usage series for one account's
// hourly readings. Entries without a read time are skipped entirely; an
// entry missing only cost or only usage is skipped for that series alone.
func (p *Publisher) PublishHourly(ctx context.Context, account string, hourly []models.HourlyReading) (costPoints, usagePoints int, err error) {
	usageID := UsageSeriesID(account)
	costID := CostSeriesID(account)

	usageSum, lastUsageStart, haveUsage, err := p.store.LastSum(usageID)
	if err != nil {
		return 0, 0, fmt.Errorf("reading last usage sum: %w", err)
	}
	costSum, lastCostStart, haveCost, err := p.store.LastSum(costID)
	if err != nil {
		return 0, 0, fmt.Errorf("reading last cost sum: %w", err)
	}

	entries := make([]models.HourlyReading, 0, len(hourly))
	for _, h := range hourly {
		if h.ReadTime.IsZero() {
			continue
		}
		entries = append(entries, h)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ReadTime.Before(entries[j].ReadTime)
	})

	var costStats, usageStats []models.StatisticPoint
	for _, h := range entries {
		start := BucketStart(h.ReadTime)

		if h.BillingCharged != nil {
			if !haveCost || start.After(lastCostStart) {
				costSum += *h.BillingCharged
				costStats = append(costStats, models.StatisticPoint{
					Start: start,
					Sum:   costSum,
					State: *h.BillingCharged,
				})
				lastCostStart = start
				haveCost = true
			}
		}

		if h.KWHActual != nil {
			if !haveUsage || start.After(lastUsageStart) {
				usageSum += *h.KWHActual
				usageStats = append(usageStats, models.StatisticPoint{
					Start: start,
					Sum:   usageSum,
					State: *h.KWHActual,
				})
				lastUsageStart = start
				haveUsage = true
			}
		}
	}

	if len(costStats) > 0 {
		series := Series{
			ID:     costID,
			Name:   fmt.Sprintf("FPL %s Hourly Cost", account),
			Unit:   "USD",
			Source: source,
		}
		if err := p.store.Append(series, costStats); err != nil {
			return 0, 0, fmt.Errorf("appending cost statistics: %w", err)
		}
	}

	if len(usageStats) > 0 {
		series := Series{
			ID:     usageID,
			Name:   fmt.Sprintf("FPL %s Hourly Usage", account),
			Unit:   "kWh",
			Source: source,
		}
		if err := p.store.Append(series, usageStats); err != nil {
			return 0, 0, fmt.Errorf("appending usage statistics: %w", err)
		}
	}

	log.Ctx(ctx).DebugContext(ctx, "published hourly statistics",
		slog.String("account", account),
		slog.Int("costPoints", len(costStats)),
		slog.Int("usagePoints", len(usageStats)),
	)

	return len(costStats), len(usageStats), nil
}

// BackfillDays decides the lookback window for one account: the full
// window when the usage series is empty, two days once data exists.
func (p *Publisher) BackfillDays(account string, fullWindow int) (int, error) {
	_, _, ok, err := p.store.LastSum(UsageSeriesID(account))
	if err != nil {
		return 0, err
	}
	if ok {
		return 2, nil
	}
	return fullWindow, nil
}
