package models

import (
	"errors"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/logger"

	"gorm.io/gorm"
)

// InitSystemAccounts 初始化平台佣金账户与托管账户
func InitSystemAccounts(currency string) error {
	for _, ownerType := range []string{constants.WalletOwnerPlatform, constants.WalletOwnerEscrow} {
		var account WalletAccount
		err := DB.Where("owner_type = ? AND owner_id = ?", ownerType, constants.SystemWalletOwnerID).First(&account).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		account = WalletAccount{
			OwnerType: ownerType,
			OwnerID:   constants.SystemWalletOwnerID,
			Balance:   ZeroMoney(),
			Currency:  currency,
			Status:    constants.WalletStatusActive,
		}
		if err := DB.Create(&account).Error; err != nil {
			return err
		}
		logger.Infow("system_wallet_account_created", "owner_type", ownerType, "account_id", account.ID)
	}
	return nil
}
