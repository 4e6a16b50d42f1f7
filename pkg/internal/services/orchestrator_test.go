package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/nathanctay/instafetch/pkg/internal/provider"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	posts []provider.CandidatePost
	err   error
	calls int32
}

func (s *stubAdapter) FetchLatest(_ context.Context, _ string, _ *time.Time) ([]provider.CandidatePost, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.posts, nil
}

func (s *stubAdapter) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

func TestManualFetchScenario(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	adapter := &stubAdapter{posts: twoCandidates(base)}
	SetAdapter(adapter)

	fetched, err := RunFetchForAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusActive, fetched.Status)
	require.NotNil(t, fetched.LastShortcode)
	assert.Equal(t, "A2", *fetched.LastShortcode)
	require.NotNil(t, fetched.LastCheckedAt)

	var count int64
	require.NoError(t, database.C.Model(&models.Post{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	// Same candidates again: zero new rows, cursor unchanged.
	again, err := RunFetchForAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotNil(t, again.LastShortcode)
	assert.Equal(t, "A2", *again.LastShortcode)

	require.NoError(t, database.C.Model(&models.Post{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, 2, adapter.callCount())
}

func TestManualFetchRejectsPausedAccount(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")
	_, err := PauseAccount(account.ID)
	require.NoError(t, err)

	SetAdapter(&stubAdapter{})
	_, err = RunFetchForAccount(context.Background(), account.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paused")
}

func TestStaleSnapshotCannotRegressCursor(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")

	// Another fetch finishes after our snapshot was taken and advances
	// the cursor.
	newer := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	fresh := reload(t, account.ID)
	require.NoError(t, ApplyFetchSuccess(&fresh, ReconcileResult{
		Watermark: &newer, NewestShortcode: "NEW",
	}))

	// The fetch working from the stale snapshot replays an old post.
	old := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	SetAdapter(&stubAdapter{posts: []provider.CandidatePost{
		{Shortcode: "OLD", PublishedAt: old},
	}})
	require.NoError(t, FetchAccountPosts(context.Background(), &account))

	stored := reload(t, account.ID)
	require.NotNil(t, stored.LastShortcode)
	assert.Equal(t, "NEW", *stored.LastShortcode)
	require.NotNil(t, stored.LastPostAt)
	assert.True(t, stored.LastPostAt.Equal(newer))
}

func TestBusyRejectionRefundsWindowCapacity(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")

	viper.Set("fetch.window_cap", 1)
	t.Cleanup(func() {
		viper.Set("fetch.window_cap", 0)
		ResetFetchWindow()
	})
	SetAdapter(&stubAdapter{})

	mutex := lockFor(account.ID)
	mutex.Lock()
	_, err := RunFetchForAccount(context.Background(), account.ID)
	mutex.Unlock()
	assert.ErrorIs(t, err, ErrBusy)

	// The busy rejection did not spend the only unit of capacity.
	_, err = RunFetchForAccount(context.Background(), account.ID)
	require.NoError(t, err)
}

func TestManualFetchWhileInFlightIsBusy(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")
	SetAdapter(&stubAdapter{})

	mutex := lockFor(account.ID)
	mutex.Lock()
	defer mutex.Unlock()

	_, err := RunFetchForAccount(context.Background(), account.ID)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestCycleSkipsPausedAndErroredAccounts(t *testing.T) {
	setupDatabase(t)
	active := seedAccount(t, "natgeo")
	paused := seedAccount(t, "nasa")
	errored := seedAccount(t, "bbcearth")
	require.NoError(t, database.C.Model(&paused).Update("status", models.AccountStatusPaused).Error)
	require.NoError(t, database.C.Model(&errored).Update("status", models.AccountStatusError).Error)

	adapter := &stubAdapter{}
	SetAdapter(adapter)

	report, err := RunFetchCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, adapter.callCount())

	stored := reload(t, active.ID)
	assert.NotNil(t, stored.LastCheckedAt)
}

func TestCycleRespectsMinimumInterval(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")
	recent := time.Now().Add(-time.Minute)
	require.NoError(t, database.C.Model(&account).Update("last_checked_at", recent).Error)

	adapter := &stubAdapter{}
	SetAdapter(adapter)

	report, err := RunFetchCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Attempted)
	assert.Equal(t, 1, report.SkippedRecent)
	assert.Equal(t, 0, adapter.callCount())
}

func TestCycleHonorsWindowCap(t *testing.T) {
	setupDatabase(t)
	seedAccount(t, "natgeo")
	seedAccount(t, "nasa")
	seedAccount(t, "bbcearth")

	viper.Set("fetch.window_cap", 2)
	t.Cleanup(func() {
		viper.Set("fetch.window_cap", 0)
		ResetFetchWindow()
	})

	adapter := &stubAdapter{}
	SetAdapter(adapter)

	report, err := RunFetchCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.SkippedCapacity)
	assert.Equal(t, 2, adapter.callCount())

	// Manual triggers spend the same window.
	var accounts []models.Account
	require.NoError(t, database.C.Find(&accounts).Error)
	_, err = RunFetchForAccount(context.Background(), accounts[0].ID)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestProviderFailuresDoNotAbortTheCycle(t *testing.T) {
	setupDatabase(t)
	seedAccount(t, "natgeo")
	seedAccount(t, "nasa")

	adapter := &stubAdapter{err: provider.Transient(fmt.Errorf("status 503"))}
	SetAdapter(adapter)

	report, err := RunFetchCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Failed)

	var accounts []models.Account
	require.NoError(t, database.C.Find(&accounts).Error)
	for _, account := range accounts {
		assert.Equal(t, 1, account.FailureStreak)
		assert.NotNil(t, account.LastCheckedAt)
	}
}

func TestManualFetchSurfacesPermanentFailure(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "gone_profile")

	adapter := &stubAdapter{err: provider.Permanent(errors.New("profile not found"))}
	SetAdapter(adapter)

	_, err := RunFetchForAccount(context.Background(), account.ID)
	require.Error(t, err)
	assert.True(t, provider.IsPermanent(err))

	stored := reload(t, account.ID)
	assert.Equal(t, 1, stored.FailureStreak)
}
