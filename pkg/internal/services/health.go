package services

import (
	"time"

	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/nathanctay/instafetch/pkg/internal/provider"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const DefaultFailureThreshold = 3

func failureThreshold() int {
	if threshold := viper.GetInt("fetch.failure_threshold"); threshold > 0 {
		return threshold
	}
	return DefaultFailureThreshold
}

// ApplyFetchSuccess records a successful fetch attempt: stamps
// lastCheckedAt, clears the failure streak, recovers an errored account
// and advances the cursor. The cursor only moves forward; a provider
// replaying stale posts never regresses it.
func ApplyFetchSuccess(account *models.Account, result ReconcileResult) error {
	now := time.Now()
	updates := map[string]any{
		"last_checked_at": now,
		"failure_streak":  0,
	}

	account.LastCheckedAt = &now
	account.FailureStreak = 0

	if account.Status == models.AccountStatusError {
		updates["status"] = models.AccountStatusActive
		account.Status = models.AccountStatusActive
		log.Info().Str("handle", account.Handle).Msg("Account recovered from error state.")
	}

	if result.Watermark != nil && len(result.NewestShortcode) > 0 {
		if account.LastPostAt == nil || result.Watermark.After(*account.LastPostAt) {
			updates["last_post_at"] = *result.Watermark
			updates["last_shortcode"] = result.NewestShortcode
			account.LastPostAt = result.Watermark
			account.LastShortcode = &result.NewestShortcode
		}
	}

	return database.C.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(updates).Error
}

// ApplyFetchFailure records a failed fetch attempt. The cursor is left
// untouched; lastCheckedAt still moves so the scheduler does not hammer a
// broken account. Crossing the consecutive-failure threshold opens the
// circuit by flipping the account into the error state.
func ApplyFetchFailure(account *models.Account, cause error) error {
	now := time.Now()
	account.LastCheckedAt = &now
	account.FailureStreak++

	updates := map[string]any{
		"last_checked_at": now,
		"failure_streak":  account.FailureStreak,
	}

	if provider.IsPermanent(cause) {
		log.Warn().Err(cause).Str("handle", account.Handle).
			Msg("Permanent provider failure; the account likely needs a handle correction...")
	}

	if account.FailureStreak >= failureThreshold() && account.Status == models.AccountStatusActive {
		updates["status"] = models.AccountStatusError
		account.Status = models.AccountStatusError
		log.Warn().Str("handle", account.Handle).
			Int("streak", account.FailureStreak).
			Msg("Account exceeded the failure threshold and was circuit-broken.")
	}

	return database.C.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(updates).Error
}

// NextEligibleAt reports when the account may be fetched again by the
// scheduler: the minimum inter-fetch interval, doubled per consecutive
// failure and capped.
func NextEligibleAt(account models.Account, minInterval, backoffCap time.Duration) time.Time {
	if account.LastCheckedAt == nil {
		return time.Time{}
	}

	delay := minInterval
	for i := 0; i < account.FailureStreak; i++ {
		delay *= 2
		if backoffCap > 0 && delay >= backoffCap {
			delay = backoffCap
			break
		}
	}

	return account.LastCheckedAt.Add(delay)
}
