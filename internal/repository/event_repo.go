package repository

import (
	"context"

	"gorm.io/gorm"

	"emis-vote/backend/internal/model"
)

// EventListFilters 活动列表过滤条件
// Status 按推导后的状态过滤；Today 为业务时区下的当天日期（YYYY-MM-DD）
type EventListFilters struct {
	Keyword string
	Status  string
	Today   string
}

// EventRepository 活动数据访问接口
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, filters *EventListFilters, offset, limit int) ([]model.Event, int64, error)
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id string, deletedBy string) error
	// MarkExpired 为未显式设置状态且日期早于 today 的活动记录 expired_at，不改动 status
	MarkExpired(ctx context.Context, today string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type eventRepo struct {
	db *gorm.DB
}

// NewEventRepo 创建 EventRepository 实例
func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Where("event_id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepo) List(ctx context.Context, filters *EventListFilters, offset, limit int) ([]model.Event, int64, error) {
	var events []model.Event
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Event{})

	if filters.Keyword != "" {
		kw := "%" + filters.Keyword + "%"
		db = db.Where("title ILIKE ? OR location ILIKE ?", kw, kw)
	}

	// 与 service.DeriveEventStatus 保持同一规则：显式状态优先，否则按天比较
	switch filters.Status {
	case model.EventStatusExpired:
		db = db.Where("status = ? OR (status = '' AND date < ?)", model.EventStatusExpired, filters.Today)
	case model.EventStatusActive:
		db = db.Where("status = ? OR (status = '' AND date >= ?)", model.EventStatusActive, filters.Today)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("date DESC, created_at DESC").
		Find(&events).Error
	return events, total, err
}

func (r *eventRepo) Update(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *eventRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("event_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *eventRepo) MarkExpired(ctx context.Context, today string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("status = '' AND date < ? AND expired_at IS NULL", today).
		Update("expired_at", gorm.Expr("NOW()"))
	return result.RowsAffected, result.Error
}

func (r *eventRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Event{}).Count(&n).Error
	return n, err
}
