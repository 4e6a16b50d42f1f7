package services

import (
	"testing"

	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSettingsCreatesDefaults(t *testing.T) {
	setupDatabase(t)

	settings, err := GetSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DigestFrequencyDaily, settings.DigestFrequency)
	assert.False(t, settings.InstantAlerts)

	// A second read returns the same row instead of minting another.
	again, err := GetSettings()
	require.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID)

	var count int64
	require.NoError(t, database.C.Model(&models.Settings{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpdateSettings(t *testing.T) {
	setupDatabase(t)

	updated, err := UpdateSettings(models.DigestFrequencyWeekly, true)
	require.NoError(t, err)
	assert.Equal(t, models.DigestFrequencyWeekly, updated.DigestFrequency)
	assert.True(t, updated.InstantAlerts)

	// The cache was invalidated, so the next read sees the new values.
	settings, err := GetSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DigestFrequencyWeekly, settings.DigestFrequency)
	assert.True(t, settings.InstantAlerts)
}

func TestUpdateSettingsRejectsUnknownFrequency(t *testing.T) {
	setupDatabase(t)

	_, err := UpdateSettings("hourly", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported digest frequency")

	settings, err := GetSettings()
	require.NoError(t, err)
	assert.Equal(t, models.DigestFrequencyDaily, settings.DigestFrequency)
}
