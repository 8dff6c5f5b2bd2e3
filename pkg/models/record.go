package models

import "time"

// AccountRecord is the normalized per-account record built from the FPL
// API on every refresh cycle. Nothing carries over between cycles; a field
// left nil (or a zero time) simply wasn't available upstream this time.
type AccountRecord struct {
	AccountNumber string `json:"accountNumber"`
	Premise       string `json:"premise"`
	MeterSerialNo string `json:"meterSerialNo"`
	MeterNo       string `json:"meterNo"`

	CurrentBillDate time.Time `json:"currentBillDate"`
	NextBillDate    time.Time `json:"nextBillDate"`
	BillStartDate   time.Time `json:"billStartDate"`
	BillEndDate     time.Time `json:"billEndDate"`

	// Derived from the bill dates and today's date.
	ServiceDays   int `json:"serviceDays"`
	AsOfDays      int `json:"asOfDays"`
	RemainingDays int `json:"remainingDays"`

	BudgetBill                 bool     `json:"budgetBill"`
	BudgetBillingDailyAvg      *float64 `json:"budgetBillingDailyAvg,omitempty"`
	BudgetBillingBillToDate    *float64 `json:"budgetBillingBillToDate,omitempty"`
	BudgetBillingProjectedBill *float64 `json:"budgetBillingProjectedBill,omitempty"`
	DeferredAmount             *float64 `json:"deferredAmount,omitempty"`

	BillToDate    *float64 `json:"billToDate,omitempty"`
	ProjectedBill *float64 `json:"projectedBill,omitempty"`
	DailyAvg      *float64 `json:"dailyAvg,omitempty"`
	AvgHighTemp   *int     `json:"avgHighTemp,omitempty"`

	ProjectedKWH    *int     `json:"projectedKWH,omitempty"`
	DailyAverageKWH *float64 `json:"dailyAverageKWH,omitempty"`
	BillToDateKWH   *float64 `json:"billToDateKWH,omitempty"`

	// Meter totals default to 0 when the account has no net metering.
	RecMtrReading int `json:"recMtrReading"`
	DelMtrReading int `json:"delMtrReading"`

	// DailyUsage holds only the most recent day's reading.
	DailyUsage *DailyReading `json:"dailyUsage,omitempty"`

	// HourlyUsage is ordered ascending by ReadTime with unique read times.
	HourlyUsage []HourlyReading `json:"hourlyUsage,omitempty"`

	ApplianceUsage *ApplianceUsage `json:"applianceUsage,omitempty"`

	Balance *float64 `json:"balance,omitempty"`
	PastDue *bool    `json:"pastDue,omitempty"`
}

// DailyReading is the single latest day's usage, selected by matching the
// series' reported end date.
type DailyReading struct {
	KWHActual           float64   `json:"kwhActual"`
	BillingCharge       float64   `json:"billingCharge"`
	Reading             float64   `json:"reading"`
	ReadTime            time.Time `json:"readTime"`
	NetDeliveredKWH     float64   `json:"netDeliveredKwh"`
	NetDeliveredReading float64   `json:"netDeliveredReading"`
}

// HourlyReading is one hour of usage. ReadTime is the end of the hour the
// reading describes. Cost and usage are nil when the meter didn't report
// them for that hour.
type HourlyReading struct {
	Hour           int       `json:"hour"`
	ReadTime       time.Time `json:"readTime"`
	BillingCharged *float64  `json:"billingCharged,omitempty"`
	KWHActual      *float64  `json:"kwhActual,omitempty"`
	Reading        *float64  `json:"reading,omitempty"`
}

// ApplianceUsage is the category cost/kWh breakdown for the most recent
// billing period only.
type ApplianceUsage struct {
	Categories []ApplianceCategory `json:"categories"`
	StartDate  time.Time           `json:"startDate"`
	EndDate    time.Time           `json:"endDate"`
}

// ApplianceCategory is one appliance category's share of the bill.
type ApplianceCategory struct {
	Category string  `json:"category"`
	Cost     float64 `json:"cost"`
	KWH      float64 `json:"kwh"`
}

// StatisticPoint is one hour-aligned point in a cumulative statistic
// series. Sum is monotonically non-decreasing within a series.
type StatisticPoint struct {
	Start time.Time `json:"start"`
	Sum   float64   `json:"sum"`
	State float64   `json:"state"`
}
