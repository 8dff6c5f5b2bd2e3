package fpl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fplscraper/fplscraper/pkg/log"
	"github.com/fplscraper/fplscraper/pkg/models"
)

const statusCategoryOpen = "OPEN"

const (
	programEnrolled     = "ENROLLED"
	programBudgetBill   = "BBL"
	multiAccountMaxPage = 20
)

// GetOpenAccounts lists the account numbers with an OPEN status category,
// preserving upstream ordering.
func (c *Client) GetOpenAccounts(ctx context.Context) ([]string, error) {
	var resp headerResponse
	if err := c.doGet(ctx, urlHeader, &resp); err != nil {
		return nil, fmt.Errorf("fetching account header: %w", err)
	}

	var result []string
	for _, account := range resp.Data.Accounts.Data.Data {
		if account.StatusCategory == statusCategoryOpen {
			result = append(result, account.AccountNumber)
		}
	}
	return result, nil
}

// getAccountSummary fetches the mandatory per-account summary. Unlike the
// other fetchers its failure aborts the account's update.
func (c *Client) getAccountSummary(ctx context.Context, account string) (accountSummary, error) {
	var resp accountSummaryResponse
	if err := c.doGet(ctx, fmt.Sprintf(urlAccount, account), &resp); err != nil {
		return accountSummary{}, fmt.Errorf("fetching account summary: %w", err)
	}
	return resp.Data, nil
}

// fetchProjectedBill enriches the record with the projected-bill scalars.
func (c *Client) fetchProjectedBill(ctx context.Context, rec *models.AccountRecord, account, premise string, currentBillDate time.Time) error {
	path := fmt.Sprintf(urlProjectedBill, account, premise, upstreamBillDate(currentBillDate))

	var resp projectedBillResponse
	if err := c.doGet(ctx, path, &resp); err != nil {
		return err
	}

	rec.BillToDate = toFloat(resp.Data.BillToDate)
	rec.ProjectedBill = toFloat(resp.Data.ProjectedBill)
	rec.DailyAvg = toFloat(resp.Data.DailyAvg)
	rec.AvgHighTemp = toInt(resp.Data.AvgHighTemp)
	return nil
}

// fetchBudgetBilling computes the smoothed monthly budget bill from the
// billing graph: current projection plus historical charges plus any
// deferred balance, amortized over 12 months at ~30 days per cycle.
func (c *Client) fetchBudgetBilling(ctx context.Context, rec *models.AccountRecord, account string) error {
	// The computation needs the projected bill; without it every budget
	// field stays absent rather than being built from charges alone.
	if rec.ProjectedBill == nil {
		return fmt.Errorf("projected bill unavailable")
	}

	var details budgetDetailsResponse
	if err := c.doGet(ctx, fmt.Sprintf(urlBudgetDetails, account), &details); err != nil {
		return err
	}

	var billingCharge float64
	for _, det := range details.Data.GraphData {
		billingCharge += det.ActualBillAmt
	}

	monthly := roundCents((*rec.ProjectedBill+billingCharge)/12 + details.Data.DeferredAmount/12)
	dailyAvg := roundCents(monthly / 30)
	billToDate := roundCents(dailyAvg * float64(rec.AsOfDays))

	rec.BudgetBillingProjectedBill = &monthly
	rec.BudgetBillingDailyAvg = &dailyAvg
	rec.BudgetBillingBillToDate = &billToDate

	var graph budgetGraphResponse
	if err := c.doGet(ctx, fmt.Sprintf(urlBudgetGraph, account), &graph); err != nil {
		// The premise details already produced the projections; the graph
		// call only refines bill-to-date and the deferred balance.
		log.Ctx(ctx).WarnContext(ctx, "budget billing graph unavailable", slog.Any("error", err))
		return nil
	}
	if v := toFloat(graph.Data.EleAmt); v != nil {
		rec.BillToDate = v
	}
	if v := toFloat(graph.Data.DefAmt); v != nil {
		rec.DeferredAmount = v
	}
	return nil
}

// fetchEnergyService pulls the current-usage scalars, the latest day's
// usage, and the hourly series from the mobile energy service.
func (c *Client) fetchEnergyService(ctx context.Context, rec *models.AccountRecord, account, premise, meterNo string, currentBillDate time.Time) error {
	payload := map[string]interface{}{
		"status":         "2",
		"accountType":    "RESIDENTIAL",
		"premiseNumber":  premise,
		"lastBilledDate": upstreamBillDate(currentBillDate),
		"amrFlag":        "Y",
		"revCode":        "1",
		"meterNo":        meterNo,
	}

	var resp energyServiceResponse
	if err := c.doPostJSON(ctx, fmt.Sprintf(urlEnergyService, account), payload, &resp); err != nil {
		return err
	}
	if resp.Data == nil {
		return fmt.Errorf("energy service returned no data")
	}

	cu := resp.Data.CurrentUsage
	rec.ProjectedKWH = toInt(cu.ProjectedKWH)
	rec.DailyAverageKWH = toFloat(cu.DailyAverageKWH)
	rec.BillToDateKWH = toFloat(cu.BillToDateKWH)
	rec.RecMtrReading = intOrZero(cu.RecMtrReading)
	rec.DelMtrReading = intOrZero(cu.DelMtrReading)
	if t, ok := parseBillDate(cu.BillStartDate); ok {
		rec.BillStartDate = t
	}
	if t, ok := parseBillDate(cu.BillEndDate); ok {
		rec.BillEndDate = t
	}

	// The sensor should reset daily to the previous day's usage, so only
	// the entry matching the series' reported end date is kept.
	for _, day := range resp.Data.DailyUsage.Data {
		if day.Date != resp.Data.DailyUsage.EndDate {
			continue
		}
		readTime, ok := parseReadTime(day.ReadTime)
		if !ok {
			continue
		}
		rec.DailyUsage = &models.DailyReading{
			KWHActual:           floatOrZero(day.KWHActual),
			BillingCharge:       floatOrZero(day.BillingCharge),
			Reading:             floatOrZero(day.Reading),
			ReadTime:            readTime,
			NetDeliveredKWH:     floatOrZero(day.NetDeliveredKWH),
			NetDeliveredReading: floatOrZero(day.NetDeliveredReading),
		}
		break
	}

	rec.HourlyUsage = parseHourlySeries(ctx, resp.Data.HourlyUsage)
	return nil
}

// GetHourlyUsage fetches one day's hourly readings, used for statistics
// backfill.
func (c *Client) GetHourlyUsage(ctx context.Context, account, premise, meterNo string, day time.Time) ([]models.HourlyReading, error) {
	payload := map[string]interface{}{
		"status":              2,
		"channel":             "WEB",
		"amrFlag":             "Y",
		"accountType":         "RESIDENTIAL",
		"revCode":             "1",
		"premiseNumber":       premise,
		"meterNo":             meterNo,
		"projectedBillFlag":   false,
		"billComparisionFlag": false, // misspelled upstream
		"monthlyFlag":         false,
		"frequencyType":       "Hourly",
		"applicationPage":     "resDashBoard",
		"startDate":           upstreamBillDate(day),
		"endDate":             "",
	}

	var resp hourlyServiceResponse
	if err := c.doPostJSON(ctx, fmt.Sprintf(urlEnergyDaily, account, account), payload, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, nil
	}
	return parseHourlySeries(ctx, resp.Data.HourlyUsage.Data), nil
}

// parseHourlySeries decodes an HourlyUsage array, unwrapping one level of
// list-of-one if the API nested it, and drops entries without a read time.
func parseHourlySeries(ctx context.Context, raw json.RawMessage) []models.HourlyReading {
	if len(raw) == 0 {
		return nil
	}

	// Some responses wrap the series as {"data": [...]}.
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
		raw = wrapped.Data
	}

	var entries []hourlyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		var nested [][]hourlyEntry
		if err := json.Unmarshal(raw, &nested); err != nil || len(nested) == 0 {
			log.Ctx(ctx).DebugContext(ctx, "unrecognized hourly usage shape")
			return nil
		}
		entries = nested[0]
	}

	var result []models.HourlyReading
	for _, entry := range entries {
		readTime, ok := parseReadTime(entry.ReadTime)
		if !ok {
			continue
		}
		result = append(result, models.HourlyReading{
			Hour:           intOrZero(entry.Hour),
			ReadTime:       readTime,
			BillingCharged: toFloat(entry.BillingCharged),
			KWHActual:      toFloat(entry.KWHActual),
			Reading:        toFloat(entry.Reading),
		})
	}
	return result
}

// fetchApplianceUsage keeps only the most recent billing period's category
// breakdown (billPeriod == 1).
func (c *Client) fetchApplianceUsage(ctx context.Context, rec *models.AccountRecord, account string, currentBillDate time.Time) error {
	payload := map[string]string{
		"startDate": upstreamBillDate(currentBillDate),
	}

	var resp applianceUsageResponse
	if err := c.doPostJSON(ctx, fmt.Sprintf(urlApplianceUsage, account, account), payload, &resp); err != nil {
		return err
	}

	for _, period := range resp.Data.Electric {
		if period.BillPeriod != 1 {
			continue
		}
		usage := &models.ApplianceUsage{}
		if t, ok := parseISODate(period.StartDate); ok {
			usage.StartDate = t
		}
		if t, ok := parseISODate(period.EndDate); ok {
			usage.EndDate = t
		}
		for _, cat := range period.Categories {
			usage.Categories = append(usage.Categories, models.ApplianceCategory{
				Category: cat.Category,
				Cost:     floatOrZero(cat.Cost),
				KWH:      floatOrZero(cat.KWH),
			})
		}
		rec.ApplianceUsage = usage
		return nil
	}
	return fmt.Errorf("no current billing period in appliance usage")
}

// fetchAccountDetails walks the paginated multi-account list to find the
// caller's balance and past-due status.
func (c *Client) fetchAccountDetails(ctx context.Context, rec *models.AccountRecord, account string) error {
	for page := 1; page <= multiAccountMaxPage; page++ {
		var resp multiAccountResponse
		if err := c.doGet(ctx, fmt.Sprintf(urlMultiAccount, page), &resp); err != nil {
			return err
		}
		if len(resp.Data.Data) == 0 {
			break
		}
		for _, acct := range resp.Data.Data {
			if acct.AccountNumber != account {
				continue
			}
			rec.Balance = toFloat(acct.Balance)
			pastDue := acct.PastDue
			rec.PastDue = &pastDue
			return nil
		}
	}
	return fmt.Errorf("account %s not found in account list", account)
}

// roundCents rounds a currency amount to two decimals
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
