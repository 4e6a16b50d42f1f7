package services

import (
	"context"
	"errors"
	"fmt"

	localCache "github.com/nathanctay/instafetch/pkg/internal/cache"
	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"gorm.io/gorm"
)

const settingsCacheKey = "settings-singleton"

// GetSettings returns the single configuration row, creating it with
// defaults on first access. Reads go through the local cache; UpdateSettings
// invalidates it.
func GetSettings() (models.Settings, error) {
	marshal := marshaler.New(cache.New[any](localCache.S))
	ctx := context.Background()

	if cached, err := marshal.Get(ctx, settingsCacheKey, new(models.Settings)); err == nil {
		return *cached.(*models.Settings), nil
	}

	var settings models.Settings
	if err := database.C.First(&settings).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return settings, err
		}
		settings = models.Settings{
			DigestFrequency: models.DigestFrequencyDaily,
			InstantAlerts:   false,
		}
		if err := database.C.Create(&settings).Error; err != nil {
			return settings, fmt.Errorf("unable to create default settings: %v", err)
		}
	}

	_ = marshal.Set(ctx, settingsCacheKey, settings, store.WithTags([]string{"settings"}))
	return settings, nil
}

func UpdateSettings(frequency string, instantAlerts bool) (models.Settings, error) {
	settings, err := GetSettings()
	if err != nil {
		return settings, err
	}

	switch frequency {
	case models.DigestFrequencyDaily, models.DigestFrequencyWeekly:
	default:
		return settings, fmt.Errorf("unsupported digest frequency: %s", frequency)
	}

	settings.DigestFrequency = frequency
	settings.InstantAlerts = instantAlerts
	if err := database.C.Save(&settings).Error; err != nil {
		return settings, err
	}

	marshal := marshaler.New(cache.New[any](localCache.S))
	_ = marshal.Delete(context.Background(), settingsCacheKey)

	return settings, nil
}
