package sensor

import (
	"fmt"
	"time"

	"github.com/fplscraper/fplscraper/pkg/models"
)

// Kind classifies what a sensor's value measures
type Kind string

const (
	KindEnergy   Kind = "energy"
	KindMonetary Kind = "monetary"
	KindDate     Kind = "date"
	KindDayCount Kind = "day_count"
	KindPlain    Kind = "plain"
)

// Definition is one sensor projected from an account record. Value returns
// (value, false) when the record doesn't carry the underlying field, in
// which case the sensor is skipped rather than published as zero.
type Definition struct {
	Key   string
	Name  string
	Kind  Kind
	Unit  string
	Value func(rec *models.AccountRecord) (interface{}, bool)
}

// Definitions returns the full sensor catalog
func Definitions() []Definition {
	return []Definition{
		{
			Key: "balance", Name: "Balance", Kind: KindMonetary, Unit: "USD",
			Value: optFloat(func(r *models.AccountRecord) *float64 { return r.Balance }),
		},
		{
			Key: "bill_to_date", Name: "Bill To Date", Kind: KindMonetary, Unit: "USD",
			Value: optFloat(func(r *models.AccountRecord) *float64 {
				if r.BudgetBill {
					return r.BudgetBillingBillToDate
				}
				return r.BillToDate
			}),
		},
		{
			Key: "projected_bill", Name: "Projected Bill", Kind: KindMonetary, Unit: "USD",
			Value: optFloat(func(r *models.AccountRecord) *float64 {
				if r.BudgetBill {
					return r.BudgetBillingProjectedBill
				}
				return r.ProjectedBill
			}),
		},
		{
			Key: "daily_avg", Name: "Daily Average Cost", Kind: KindMonetary, Unit: "USD",
			Value: optFloat(func(r *models.AccountRecord) *float64 {
				if r.BudgetBill {
					return r.BudgetBillingDailyAvg
				}
				return r.DailyAvg
			}),
		},
		{
			Key: "deferred_amount", Name: "Deferred Amount", Kind: KindMonetary, Unit: "USD",
			Value: optFloat(func(r *models.AccountRecord) *float64 { return r.DeferredAmount }),
		},
		{
			Key: "projected_kwh", Name: "Projected Usage", Kind: KindEnergy, Unit: "kWh",
			Value: func(r *models.AccountRecord) (interface{}, bool) {
				if r.ProjectedKWH == nil {
					return nil, false
				}
				return *r.ProjectedKWH, true
			},
		},
		{
			Key: "daily_avg_kwh", Name: "Daily Average Usage", Kind: KindEnergy, Unit: "kWh",
			Value: optFloat(func(r *models.AccountRecord) *float64 { return r.DailyAverageKWH }),
		},
		{
			Key: "bill_to_date_kwh", Name: "Usage To Date", Kind: KindEnergy, Unit: "kWh",
			Value: optFloat(func(r *models.AccountRecord) *float64 { return r.BillToDateKWH }),
		},
		{
			Key: "daily_usage_kwh", Name: "Daily Usage", Kind: KindEnergy, Unit: "kWh",
			Value: func(r *models.AccountRecord) (interface{}, bool) {
				if r.DailyUsage == nil {
					return nil, false
				}
				return r.DailyUsage.KWHActual, true
			},
		},
		{
			Key: "daily_usage_cost", Name: "Daily Usage Cost", Kind: KindMonetary, Unit: "USD",
			Value: func(r *models.AccountRecord) (interface{}, bool) {
				if r.DailyUsage == nil {
					return nil, false
				}
				return r.DailyUsage.BillingCharge, true
			},
		},
		{
			Key: "hourly_cost", Name: "Latest Hourly Cost", Kind: KindMonetary, Unit: "USD",
			Value: func(r *models.AccountRecord) (interface{}, bool) {
				for i := len(r.HourlyUsage) - 1; i >= 0; i-- {
					if c := r.HourlyUsage[i].BillingCharged; c != nil {
						return *c, true
					}
				}
				return nil, false
			},
		},
		{
			Key: "appliance_cost", Name: "Appliance Usage Cost", Kind: KindMonetary, Unit: "USD",
			Value: func(r *models.AccountRecord) (interface{}, bool) {
				if r.ApplianceUsage == nil {
					return nil, false
				}
				var total float64
				for _, cat := range r.ApplianceUsage.Categories {
					total += cat.Cost
				}
				return total, true
			},
		},
		{
			Key: "current_bill_date", Name: "Current Bill Date", Kind: KindDate,
			Value: dateValue(func(r *models.AccountRecord) time.Time { return r.CurrentBillDate }),
		},
		{
			Key: "next_bill_date", Name: "Next Bill Date", Kind: KindDate,
			Value: dateValue(func(r *models.AccountRecord) time.Time { return r.NextBillDate }),
		},
		{
			Key: "service_days", Name: "Service Days", Kind: KindDayCount, Unit: "d",
			Value: func(r *models.AccountRecord) (interface{}, bool) { return r.ServiceDays, true },
		},
		{
			Key: "as_of_days", Name: "Days Into Cycle", Kind: KindDayCount, Unit: "d",
			Value: func(r *models.AccountRecord) (interface{}, bool) { return r.AsOfDays, true },
		},
		{
			Key: "remaining_days", Name: "Days Remaining", Kind: KindDayCount, Unit: "d",
			Value: func(r *models.AccountRecord) (interface{}, bool) { return r.RemainingDays, true },
		},
		{
			Key: "past_due", Name: "Past Due", Kind: KindPlain,
			Value: func(r *models.AccountRecord) (interface{}, bool) {
				if r.PastDue == nil {
					return nil, false
				}
				return *r.PastDue, true
			},
		},
		{
			Key: "budget_bill", Name: "Budget Billing", Kind: KindPlain,
			Value: func(r *models.AccountRecord) (interface{}, bool) { return r.BudgetBill, true },
		},
	}
}

// State is one rendered sensor value, ready to publish
type State struct {
	Key   string
	Name  string
	Kind  Kind
	Unit  string
	State string
}

// States renders every available sensor for a record. Sensors whose
// underlying field is absent are omitted.
func States(rec *models.AccountRecord) []State {
	var states []State
	for _, def := range Definitions() {
		value, ok := def.Value(rec)
		if !ok {
			continue
		}
		states = append(states, State{
			Key:   def.Key,
			Name:  def.Name,
			Kind:  def.Kind,
			Unit:  def.Unit,
			State: render(value),
		})
	}
	return states
}

func render(value interface{}) string {
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("%.2f", v)
	case bool:
		if v {
			return "on"
		}
		return "off"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func optFloat(get func(*models.AccountRecord) *float64) func(*models.AccountRecord) (interface{}, bool) {
	return func(r *models.AccountRecord) (interface{}, bool) {
		v := get(r)
		if v == nil {
			return nil, false
		}
		return *v, true
	}
}

func dateValue(get func(*models.AccountRecord) time.Time) func(*models.AccountRecord) (interface{}, bool) {
	return func(r *models.AccountRecord) (interface{}, bool) {
		t := get(r)
		if t.IsZero() {
			return nil, false
		}
		return t.Format("2006-01-02"), true
	}
}
