package fpl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fplscraper/fplscraper/pkg/log"
	"github.com/fplscraper/fplscraper/pkg/models"
)

// accountConcurrency bounds how many accounts refresh at once. Within one
// account the summary fetch always completes before dependent fetches.
const accountConcurrency = 2

// RefreshError signals an unrecoverable cycle failure (login rejected);
// callers keep their previous data stale rather than partial.
type RefreshError struct {
	Result LoginResult
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed: login result %s", e.Result)
}

// Update builds the normalized record for one account. The account summary
// is mandatory; every other fetcher is best-effort enrichment whose failure
// is logged and degrades to absent fields.
func (c *Client) Update(ctx context.Context, account string) (*models.AccountRecord, error) {
	summary, err := c.getAccountSummary(ctx, account)
	if err != nil {
		return nil, err
	}

	rec := &models.AccountRecord{
		AccountNumber: account,
		Premise:       zeroPadPremise(summary.PremiseNumber),
		MeterSerialNo: summary.MeterSerialNo,
		MeterNo:       summary.MeterNo,
	}

	currentBillDate, okCur := parseISODate(summary.CurrentBillDate)
	nextBillDate, okNext := parseISODate(summary.NextBillDate)
	if !okCur || !okNext {
		return nil, fmt.Errorf("account %s summary has unparseable bill dates", account)
	}
	rec.CurrentBillDate = currentBillDate
	rec.NextBillDate = nextBillDate

	now := c.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	rec.ServiceDays = daysBetween(currentBillDate, nextBillDate)
	rec.AsOfDays = daysBetween(currentBillDate, today)
	rec.RemainingDays = daysBetween(today, nextBillDate)

	if err := c.fetchProjectedBill(ctx, rec, account, rec.Premise, currentBillDate); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "projected bill fetch degraded",
			slog.String("account", account), slog.Any("error", err))
	}

	// Budget billing only applies when the account is enrolled in BBL, and
	// it needs the projected bill and day counts already in hand.
	rec.BudgetBill = enrolledIn(summary.Programs.Data, programBudgetBill)
	if rec.BudgetBill {
		if err := c.fetchBudgetBilling(ctx, rec, account); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "budget billing fetch degraded",
				slog.String("account", account), slog.Any("error", err))
		}
	}

	if err := c.fetchEnergyService(ctx, rec, account, rec.Premise, rec.MeterNo, currentBillDate); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "energy service fetch degraded",
			slog.String("account", account), slog.Any("error", err))
	}

	if err := c.fetchApplianceUsage(ctx, rec, account, currentBillDate); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "appliance usage fetch degraded",
			slog.String("account", account), slog.Any("error", err))
	}

	if err := c.fetchAccountDetails(ctx, rec, account); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "account details fetch degraded",
			slog.String("account", account), slog.Any("error", err))
	}

	return rec, nil
}

// FetchAllAccountData runs one refresh cycle: authenticate, discover the
// open accounts (unless an explicit list is given), and rebuild each
// account's record. A login failure aborts the whole cycle; a single
// account's failure only drops that account from the result.
func (c *Client) FetchAllAccountData(ctx context.Context, accounts []string) (map[string]*models.AccountRecord, error) {
	if c.token == "" {
		result, err := c.Login(ctx)
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		if result != LoginOK {
			return nil, &RefreshError{Result: result}
		}
	}

	if len(accounts) == 0 {
		var err error
		accounts, err = c.GetOpenAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("discovering accounts: %w", err)
		}
	}

	records := make(map[string]*models.AccountRecord, len(accounts))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(accountConcurrency)
	for _, account := range accounts {
		g.Go(func() error {
			rec, err := c.Update(gctx, account)
			if err != nil {
				// An auth failure means the session itself is bad, so the
				// whole cycle aborts. Anything else only drops this account.
				var authErr *AuthError
				if errors.As(err, &authErr) {
					return err
				}
				log.Ctx(gctx).ErrorContext(gctx, "account update failed",
					slog.String("account", account), slog.Any("error", err))
				return nil
			}
			mu.Lock()
			records[account] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return records, nil
}

// enrolledIn reports whether the named program has an ENROLLED status
func enrolledIn(programs []accountProgram, name string) bool {
	for _, p := range programs {
		if p.Name == name && p.EnrollmentStatus == programEnrolled {
			return true
		}
	}
	return false
}

// daysBetween counts whole calendar days from a to b
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
