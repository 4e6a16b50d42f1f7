package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"github.com/nathanctay/instafetch/pkg/internal/provider"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func GetAccount(id uint) (models.Account, error) {
	var account models.Account
	if err := database.C.Where("id = ?", id).First(&account).Error; err != nil {
		return account, fmt.Errorf("unable to get account by id: %v", err)
	}
	return account, nil
}

func ListAccounts() ([]models.Account, error) {
	var accounts []models.Account
	if err := database.C.Order("handle ASC").Find(&accounts).Error; err != nil {
		return accounts, err
	}
	return accounts, nil
}

// AddAccount registers a profile to follow and kicks off its first fetch
// in the background. The initial fetch failing does not undo the add.
func AddAccount(handleOrURL string) (models.Account, error) {
	handle := provider.NormalizeHandle(handleOrURL)
	if len(handle) == 0 {
		return models.Account{}, fmt.Errorf("a profile handle or url is required")
	}

	account := models.Account{
		Handle: handle,
		URL:    fmt.Sprintf("https://www.instagram.com/%s/", handle),
		Status: models.AccountStatusActive,
	}
	if err := database.C.Create(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return account, fmt.Errorf("account %s is already tracked", handle)
		}
		return account, err
	}

	go func() {
		// Same path as a user-issued trigger, so the initial fetch spends
		// global window capacity like every other provider call.
		if _, err := RunFetchForAccount(context.Background(), account.ID); err != nil {
			log.Warn().Err(err).Str("handle", handle).Msg("Initial fetch for new account failed...")
		}
	}()

	return account, nil
}

// PauseAccount excludes an account from scheduled fetching until it is
// explicitly resumed.
func PauseAccount(id uint) (models.Account, error) {
	account, err := GetAccount(id)
	if err != nil {
		return account, err
	}

	account.Status = models.AccountStatusPaused
	if err := database.C.Model(&account).Update("status", account.Status).Error; err != nil {
		return account, err
	}
	return account, nil
}

// ResumeAccount re-activates a paused or circuit-broken account and
// forgives its failure streak.
func ResumeAccount(id uint) (models.Account, error) {
	account, err := GetAccount(id)
	if err != nil {
		return account, err
	}

	account.Status = models.AccountStatusActive
	account.FailureStreak = 0
	if err := database.C.Model(&account).Updates(map[string]any{
		"status":         models.AccountStatusActive,
		"failure_streak": 0,
	}).Error; err != nil {
		return account, err
	}
	return account, nil
}

// RemoveAccount deletes the account; its posts and their media go with it
// through the cascade.
func RemoveAccount(id uint) error {
	account, err := GetAccount(id)
	if err != nil {
		return err
	}
	return database.C.Delete(&account).Error
}
