package services

import (
	"context"
	"testing"
	"time"

	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAccountNormalizesInput(t *testing.T) {
	setupDatabase(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	SetAdapter(&stubAdapter{posts: twoCandidates(base)})

	account, err := AddAccount("https://www.instagram.com/NatGeo/")
	require.NoError(t, err)
	assert.Equal(t, "natgeo", account.Handle)
	assert.Equal(t, "https://www.instagram.com/natgeo/", account.URL)
	assert.Equal(t, models.AccountStatusActive, account.Status)

	// The initial fetch runs in the background.
	assert.Eventually(t, func() bool {
		var count int64
		if err := database.C.Model(&models.Post{}).Count(&count).Error; err != nil {
			return false
		}
		return count == 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestAddAccountRejectsDuplicates(t *testing.T) {
	setupDatabase(t)
	SetAdapter(&stubAdapter{})

	first, err := AddAccount("natgeo")
	require.NoError(t, err)

	_, err = AddAccount("@natgeo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already tracked")

	var count int64
	require.NoError(t, database.C.Model(&models.Account{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, "natgeo", reload(t, first.ID).Handle)
}

func TestInitialFetchRespectsWindowCapacity(t *testing.T) {
	setupDatabase(t)
	existing := seedAccount(t, "natgeo")

	viper.Set("fetch.window_cap", 1)
	t.Cleanup(func() {
		viper.Set("fetch.window_cap", 0)
		ResetFetchWindow()
	})

	adapter := &stubAdapter{}
	SetAdapter(adapter)
	_, err := RunFetchForAccount(context.Background(), existing.ID)
	require.NoError(t, err)

	// The background initial fetch is rejected by the spent window.
	_, err = AddAccount("nasa")
	require.NoError(t, err)
	assert.Never(t, func() bool {
		return adapter.callCount() > 1
	}, 300*time.Millisecond, 25*time.Millisecond)
}

func TestAddAccountRequiresHandle(t *testing.T) {
	setupDatabase(t)
	_, err := AddAccount("   ")
	require.Error(t, err)
}

func TestPauseAndResumeAccount(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")

	paused, err := PauseAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusPaused, paused.Status)
	assert.Equal(t, models.AccountStatusPaused, reload(t, account.ID).Status)

	resumed, err := ResumeAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusActive, resumed.Status)
}

func TestResumeForgivesFailureStreak(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")
	require.NoError(t, database.C.Model(&account).Updates(map[string]any{
		"status":         models.AccountStatusError,
		"failure_streak": 3,
	}).Error)

	resumed, err := ResumeAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusActive, resumed.Status)
	assert.Equal(t, 0, resumed.FailureStreak)

	stored := reload(t, account.ID)
	assert.Equal(t, 0, stored.FailureStreak)
}

func TestRemoveAccountCascades(t *testing.T) {
	setupDatabase(t)
	account := seedAccount(t, "natgeo")
	other := seedAccount(t, "nasa")

	seedPost(t, account, "A1", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	seedPost(t, account, "A2", time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC))
	kept := seedPost(t, other, "B1", time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))

	require.NoError(t, RemoveAccount(account.ID))

	var postCount, mediaCount int64
	require.NoError(t, database.C.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, database.C.Model(&models.Media{}).Count(&mediaCount).Error)
	assert.EqualValues(t, 1, postCount)
	assert.EqualValues(t, 1, mediaCount)

	survivor, err := GetPost(kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "B1", survivor.Shortcode)
}

func TestListAccountsOrdersByHandle(t *testing.T) {
	setupDatabase(t)
	seedAccount(t, "zebra")
	seedAccount(t, "aardvark")

	accounts, err := ListAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "aardvark", accounts[0].Handle)
	assert.Equal(t, "zebra", accounts[1].Handle)
}
