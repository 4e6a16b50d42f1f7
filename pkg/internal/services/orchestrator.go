package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/nathanctay/instafetch/pkg/internal/provider"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

var (
	// ErrBusy rejects a manual trigger that overlaps an in-flight fetch
	// for the same account.
	ErrBusy = errors.New("a fetch for this account is already in flight")
	// ErrCapacityExceeded rejects work once the global per-window fetch
	// cap is spent.
	ErrCapacityExceeded = errors.New("fetch capacity for this window is exhausted")
)

var fetchAdapter provider.Adapter

func SetAdapter(adapter provider.Adapter) {
	fetchAdapter = adapter
}

// Per-account exclusion tokens; writes touching one account's subtree
// (reconciliation + cursor) are serialized through these.
var accountLocks sync.Map

func lockFor(accountID uint) *sync.Mutex {
	actual, _ := accountLocks.LoadOrStore(accountID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

type fetchWindow struct {
	mu    sync.Mutex
	start time.Time
	used  int
}

var window fetchWindow

func (w *fetchWindow) take(limit int, span time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if w.start.IsZero() || now.Sub(w.start) >= span {
		w.start = now
		w.used = 0
	}
	if limit > 0 && w.used >= limit {
		return false
	}
	w.used++
	return true
}

func (w *fetchWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.start = time.Time{}
	w.used = 0
}

// refund returns a unit taken for an attempt that never reached the
// provider, such as a busy rejection.
func (w *fetchWindow) refund() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.used > 0 {
		w.used--
	}
}

// ResetFetchWindow forgets spent capacity. Used on configuration reload.
func ResetFetchWindow() {
	window.reset()
}

type CycleReport struct {
	Attempted       int `json:"attempted"`
	Succeeded       int `json:"succeeded"`
	Failed          int `json:"failed"`
	SkippedRecent   int `json:"skipped_recent"`
	SkippedBusy     int `json:"skipped_busy"`
	SkippedCapacity int `json:"skipped_capacity"`
}

// RunFetchCycle drives one scheduled pass over the active account set.
// Provider failures are absorbed per account through the health tracker;
// only storage-level errors abort the cycle.
func RunFetchCycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	var accounts []models.Account
	if err := database.C.
		Where("status = ?", models.AccountStatusActive).
		Order("last_checked_at ASC NULLS FIRST").
		Find(&accounts).Error; err != nil {
		return report, fmt.Errorf("unable to list active accounts: %v", err)
	}

	minInterval := durationConfig("fetch.min_interval", time.Hour)
	backoffCap := durationConfig("fetch.backoff_cap", 24*time.Hour)

	now := time.Now()
	eligible := lo.Filter(accounts, func(item models.Account, _ int) bool {
		return !NextEligibleAt(item, minInterval, backoffCap).After(now)
	})
	report.SkippedRecent = len(accounts) - len(eligible)

	log.Info().
		Int("eligible", len(eligible)).
		Int("skipped_recent", report.SkippedRecent).
		Msg("Starting fetch cycle...")

	concurrency := viper.GetInt("fetch.concurrency")
	if concurrency < 1 {
		concurrency = 4
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var cycleErr error

	limit := viper.GetInt("fetch.window_cap")
	span := durationConfig("fetch.window_span", time.Hour)

	for idx := range eligible {
		if !window.take(limit, span) {
			report.SkippedCapacity = len(eligible) - idx
			log.Warn().
				Int("skipped", report.SkippedCapacity).
				Msg("Fetch window capacity exhausted; deferring remaining accounts to a later cycle.")
			break
		}

		account := eligible[idx]
		wg.Add(1)
		sem <- struct{}{}
		go func(account models.Account) {
			defer wg.Done()
			defer func() { <-sem }()

			err := FetchAccountPosts(ctx, &account)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Attempted++
				report.Succeeded++
			case errors.Is(err, ErrBusy):
				window.refund()
				report.SkippedBusy++
			case isProviderError(err):
				report.Attempted++
				report.Failed++
			default:
				report.Attempted++
				report.Failed++
				if cycleErr == nil {
					cycleErr = err
				}
			}
		}(account)
	}

	wg.Wait()

	log.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped_busy", report.SkippedBusy).
		Int("skipped_capacity", report.SkippedCapacity).
		Msg("Fetch cycle completed.")
	return report, cycleErr
}

// RunFetchForAccount serves the manual "fetch now" trigger. It bypasses
// the inter-fetch interval floor but still spends global window capacity,
// and never runs concurrently with a scheduled attempt for the account.
func RunFetchForAccount(ctx context.Context, id uint) (models.Account, error) {
	account, err := GetAccount(id)
	if err != nil {
		return account, err
	}
	if account.Status == models.AccountStatusPaused {
		return account, fmt.Errorf("account %s is paused; resume it before fetching", account.Handle)
	}

	limit := viper.GetInt("fetch.window_cap")
	span := durationConfig("fetch.window_span", time.Hour)
	if !window.take(limit, span) {
		return account, ErrCapacityExceeded
	}

	if err := FetchAccountPosts(ctx, &account); err != nil {
		if errors.Is(err, ErrBusy) {
			window.refund()
		}
		return account, err
	}
	return account, nil
}

// FetchAccountPosts performs one fetch attempt for one account: provider
// call, reconciliation, health bookkeeping. Callers are responsible for
// capacity accounting.
func FetchAccountPosts(ctx context.Context, account *models.Account) error {
	mutex := lockFor(account.ID)
	if !mutex.TryLock() {
		return ErrBusy
	}
	defer mutex.Unlock()

	// The caller's snapshot may predate a fetch that finished between the
	// load and the lock; the cursor guard has to work from the stored row.
	var fresh models.Account
	if err := database.C.First(&fresh, account.ID).Error; err != nil {
		return fmt.Errorf("unable to reload account %d: %v", account.ID, err)
	}
	*account = fresh

	var since *time.Time
	if account.LastCheckedAt != nil {
		buffer := durationConfig("fetch.safety_buffer", 30*time.Minute)
		lower := account.LastCheckedAt.Add(-buffer)
		since = &lower
	}

	candidates, err := fetchAdapter.FetchLatest(ctx, account.Handle, since)
	if err != nil {
		log.Warn().Err(err).Str("handle", account.Handle).Msg("Failed to fetch account timeline...")
		if trackErr := ApplyFetchFailure(account, err); trackErr != nil {
			return trackErr
		}
		return err
	}

	result, err := ReconcilePosts(account.ID, candidates)
	if err != nil {
		return fmt.Errorf("unable to reconcile posts for %s: %v", account.Handle, err)
	}

	if err := ApplyFetchSuccess(account, result); err != nil {
		return err
	}

	if result.Inserted > 0 {
		log.Info().
			Str("handle", account.Handle).
			Int("inserted", result.Inserted).
			Msg("Observed new posts for account.")
		notifyNewPosts(ctx, *account, result.Inserted)
	}

	return nil
}

// DoScheduledFetchCycle adapts RunFetchCycle to a cron entry.
func DoScheduledFetchCycle() {
	if _, err := RunFetchCycle(context.Background()); err != nil {
		log.Error().Err(err).Msg("An error occurred when running the scheduled fetch cycle...")
	}
}

func isProviderError(err error) bool {
	var pe *provider.Error
	return errors.As(err, &pe)
}

func durationConfig(key string, fallback time.Duration) time.Duration {
	if value := viper.GetDuration(key); value > 0 {
		return value
	}
	return fallback
}
