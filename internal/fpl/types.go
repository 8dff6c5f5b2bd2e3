package fpl

import (
	"encoding/json"
	"strings"
	"time"
)

// Upstream payload shapes. FPL sends most numbers as strings, so numeric
// fields decode through json.Number and are coerced by the helpers below.

type headerResponse struct {
	Data struct {
		Accounts struct {
			Data struct {
				Data []headerAccount `json:"data"`
			} `json:"data"`
		} `json:"accounts"`
	} `json:"data"`
}

type headerAccount struct {
	AccountNumber  string `json:"accountNumber"`
	StatusCategory string `json:"statusCategory"`
}

type accountSummaryResponse struct {
	Data accountSummary `json:"data"`
}

type accountSummary struct {
	PremiseNumber   string `json:"premiseNumber"`
	MeterSerialNo   string `json:"meterSerialNo"`
	MeterNo         string `json:"meterNo"`
	CurrentBillDate string `json:"currentBillDate"`
	NextBillDate    string `json:"nextBillDate"`
	Programs        struct {
		Data []accountProgram `json:"data"`
	} `json:"programs"`
}

type accountProgram struct {
	Name             string `json:"name"`
	EnrollmentStatus string `json:"enrollmentStatus"`
}

type projectedBillResponse struct {
	Data struct {
		BillToDate    json.Number `json:"billToDate"`
		ProjectedBill json.Number `json:"projectedBill"`
		DailyAvg      json.Number `json:"dailyAvg"`
		AvgHighTemp   json.Number `json:"avgHighTemp"`
	} `json:"data"`
}

type budgetDetailsResponse struct {
	Data struct {
		GraphData []struct {
			ActualBillAmt float64 `json:"actuallBillAmt"` // misspelled upstream
		} `json:"graphData"`
		DeferredAmount float64 `json:"defAmt"`
	} `json:"data"`
}

type budgetGraphResponse struct {
	Data struct {
		EleAmt json.Number `json:"eleAmt"`
		DefAmt json.Number `json:"defAmt"`
	} `json:"data"`
}

type energyServiceResponse struct {
	Data *struct {
		CurrentUsage struct {
			ProjectedKWH    json.Number `json:"projectedKWH"`
			DailyAverageKWH json.Number `json:"dailyAverageKWH"`
			BillToDateKWH   json.Number `json:"billToDateKWH"`
			RecMtrReading   json.Number `json:"recMtrReading"`
			DelMtrReading   json.Number `json:"delMtrReading"`
			BillStartDate   string      `json:"billStartDate"`
			BillEndDate     string      `json:"billEndDate"`
		} `json:"CurrentUsage"`
		DailyUsage struct {
			EndDate string       `json:"endDate"`
			Data    []dailyEntry `json:"data"`
		} `json:"DailyUsage"`
		HourlyUsage json.RawMessage `json:"HourlyUsage"`
	} `json:"data"`
}

type dailyEntry struct {
	Date                string      `json:"date"`
	MissingDay          string      `json:"missingDay"`
	KWHActual           json.Number `json:"kwhActual"`
	BillingCharge       json.Number `json:"billingCharge"`
	Reading             json.Number `json:"reading"`
	ReadTime            string      `json:"readTime"`
	NetDeliveredKWH     json.Number `json:"netDeliveredKwh"`
	NetDeliveredReading json.Number `json:"netDeliveredReading"`
}

type hourlyEntry struct {
	Hour           json.Number `json:"hour"`
	ReadTime       string      `json:"readTime"`
	BillingCharged json.Number `json:"billingCharged"`
	KWHActual      json.Number `json:"kwhActual"`
	Reading        json.Number `json:"reading"`
}

type hourlyServiceResponse struct {
	Data *struct {
		HourlyUsage struct {
			Data json.RawMessage `json:"data"`
		} `json:"HourlyUsage"`
	} `json:"data"`
}

type applianceUsageResponse struct {
	Data struct {
		Electric []appliancePeriod `json:"electric"`
	} `json:"data"`
}

type appliancePeriod struct {
	BillPeriod int    `json:"billPeriod"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Categories []struct {
		Category string      `json:"category"`
		Cost     json.Number `json:"cost"`
		KWH      json.Number `json:"kwh"`
	} `json:"categories"`
}

type multiAccountResponse struct {
	Data struct {
		Data []struct {
			AccountNumber string      `json:"accountNumber"`
			Balance       json.Number `json:"balance"`
			PastDue       bool        `json:"pastDue"`
		} `json:"data"`
	} `json:"data"`
}

// Coercion helpers. Missing or malformed optional fields become nil, never
// an error; call sites merge or omit explicitly.

func toFloat(n json.Number) *float64 {
	if n == "" {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}

func toInt(n json.Number) *int {
	if n == "" {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	i := int(f)
	return &i
}

func floatOrZero(n json.Number) float64 {
	if f := toFloat(n); f != nil {
		return *f
	}
	return 0
}

func intOrZero(n json.Number) int {
	if i := toInt(n); i != nil {
		return *i
	}
	return 0
}

// parseISODate extracts the calendar date from an upstream timestamp like
// "2022-02-25T00:00:00.000-05:00" or a bare "2022-02-25".
func parseISODate(s string) (time.Time, bool) {
	s = strings.SplitN(s, "T", 2)[0]
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseBillDate parses the "%m-%d-%Y" dates the energy service uses.
func parseBillDate(s string) (time.Time, bool) {
	t, err := time.Parse("01-02-2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseReadTime parses a full upstream read timestamp, keeping its offset.
func parseReadTime(s string) (time.Time, bool) {
	for _, layout := range []string{
		"2006-01-02T15:04:05.000-07:00",
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// upstreamBillDate renders a date the way the API wants it in request
// bodies and query strings ("%m%d%Y").
func upstreamBillDate(t time.Time) string {
	return t.Format("01022006")
}

// zeroPadPremise left-pads a premise number to the 9 digits the energy
// endpoints require.
func zeroPadPremise(premise string) string {
	if len(premise) >= 9 {
		return premise
	}
	return strings.Repeat("0", 9-len(premise)) + premise
}
