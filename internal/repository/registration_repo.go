package repository

import (
	"context"

	"gorm.io/gorm"

	"emis-vote/backend/internal/model"
)

// RegistrationRepository 活动报名数据访问接口
type RegistrationRepository interface {
	Create(ctx context.Context, reg *model.Registration) error
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]model.Registration, error)
	CountByEvent(ctx context.Context, eventID string) (int64, error)
	// CountByEvents 批量统计报名人数，返回 event_id → 人数
	CountByEvents(ctx context.Context, eventIDs []string) (map[string]int64, error)
	Count(ctx context.Context) (int64, error)
}

type registrationRepo struct {
	db *gorm.DB
}

// NewRegistrationRepo 创建 RegistrationRepository 实例
func NewRegistrationRepo(db *gorm.DB) RegistrationRepository {
	return &registrationRepo{db: db}
}

func (r *registrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

func (r *registrationRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *registrationRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	var regs []model.Registration
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&regs).Error
	return regs, err
}

func (r *registrationRepo) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	var regs []model.Registration
	err := r.db.WithContext(ctx).
		Preload("Event").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&regs).Error
	return regs, err
}

func (r *registrationRepo) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("event_id = ?", eventID).
		Count(&n).Error
	return n, err
}

func (r *registrationRepo) CountByEvents(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		EventID string
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Select("event_id, COUNT(*) AS total").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.EventID] = row.Total
	}
	return result, nil
}

func (r *registrationRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Registration{}).Count(&n).Error
	return n, err
}
