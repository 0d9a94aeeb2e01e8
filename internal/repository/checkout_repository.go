package repository

import (
	"errors"
	"time"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutRepository 结算会话数据访问接口
type CheckoutRepository interface {
	CreateSession(session *models.CheckoutSession, items []models.CheckoutSessionItem) error
	GetSessionByID(id uint) (*models.CheckoutSession, error)
	GetSessionByIDForUpdate(id uint) (*models.CheckoutSession, error)
	UpdateSession(session *models.CheckoutSession) error
	ListItems(sessionID uint) ([]models.CheckoutSessionItem, error)
	SetSelection(sessionID uint, itemIDs []uint) error
	MarkItemsReleased(itemIDs []uint) error
	ListExpiredOpen(now time.Time, limit int) ([]models.CheckoutSession, error)
	WithTx(tx *gorm.DB) *GormCheckoutRepository
}

// GormCheckoutRepository GORM 实现
type GormCheckoutRepository struct {
	db *gorm.DB
}

// NewCheckoutRepository 创建结算会话仓库
func NewCheckoutRepository(db *gorm.DB) *GormCheckoutRepository {
	return &GormCheckoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCheckoutRepository) WithTx(tx *gorm.DB) *GormCheckoutRepository {
	if tx == nil {
		return r
	}
	return &GormCheckoutRepository{db: tx}
}

// CreateSession 创建会话及其快照项
func (r *GormCheckoutRepository) CreateSession(session *models.CheckoutSession, items []models.CheckoutSessionItem) error {
	if err := r.db.Create(session).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].SessionID = session.ID
	}
	return r.db.Create(&items).Error
}

// GetSessionByID 根据 ID 获取会话
func (r *GormCheckoutRepository) GetSessionByID(id uint) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// GetSessionByIDForUpdate 加锁获取会话
func (r *GormCheckoutRepository) GetSessionByIDForUpdate(id uint) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// UpdateSession 更新会话
func (r *GormCheckoutRepository) UpdateSession(session *models.CheckoutSession) error {
	return r.db.Save(session).Error
}

// ListItems 获取会话项
func (r *GormCheckoutRepository) ListItems(sessionID uint) ([]models.CheckoutSessionItem, error) {
	var items []models.CheckoutSessionItem
	if err := r.db.Where("session_id = ?", sessionID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SetSelection 勾选给定项，其余全部取消勾选
func (r *GormCheckoutRepository) SetSelection(sessionID uint, itemIDs []uint) error {
	if err := r.db.Model(&models.CheckoutSessionItem{}).
		Where("session_id = ?", sessionID).
		Update("is_selected", false).Error; err != nil {
		return err
	}
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.Model(&models.CheckoutSessionItem{}).
		Where("session_id = ? AND id IN ?", sessionID, itemIDs).
		Update("is_selected", true).Error
}

// MarkItemsReleased 标记会话项不再占用库存
func (r *GormCheckoutRepository) MarkItemsReleased(itemIDs []uint) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.Model(&models.CheckoutSessionItem{}).
		Where("id IN ?", itemIDs).
		Update("reserved", false).Error
}

// ListExpiredOpen 获取已过期但仍处于 open 状态的会话
func (r *GormCheckoutRepository) ListExpiredOpen(now time.Time, limit int) ([]models.CheckoutSession, error) {
	if limit <= 0 {
		limit = 100
	}
	var sessions []models.CheckoutSession
	if err := r.db.Where("status = ? AND expires_at <= ?", constants.CheckoutSessionStatusOpen, now).
		Order("id asc").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
