package repository

import (
	"context"

	"gorm.io/gorm"

	"emis-vote/backend/internal/model"
)

// OptionRepository 候选项数据访问接口
type OptionRepository interface {
	Create(ctx context.Context, option *model.Option) error
	GetByID(ctx context.Context, id string) (*model.Option, error)
	// ListByVoting 按创建顺序（created_at, option_id）返回，作为排名的稳定输入顺序
	ListByVoting(ctx context.Context, votingID string) ([]model.Option, error)
	Update(ctx context.Context, option *model.Option) error
	Delete(ctx context.Context, id string, deletedBy string) error
	// IncrementVotes 计票 +1；候选项不属于该投票时返回 gorm.ErrRecordNotFound
	IncrementVotes(ctx context.Context, votingID, optionID string) error
}

type optionRepo struct {
	db *gorm.DB
}

// NewOptionRepo 创建 OptionRepository 实例
func NewOptionRepo(db *gorm.DB) OptionRepository {
	return &optionRepo{db: db}
}

func (r *optionRepo) Create(ctx context.Context, option *model.Option) error {
	return r.db.WithContext(ctx).Create(option).Error
}

func (r *optionRepo) GetByID(ctx context.Context, id string) (*model.Option, error) {
	var option model.Option
	err := r.db.WithContext(ctx).
		Where("option_id = ?", id).
		First(&option).Error
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *optionRepo) ListByVoting(ctx context.Context, votingID string) ([]model.Option, error) {
	var options []model.Option
	err := orderOptions(r.db.WithContext(ctx)).
		Where("voting_id = ?", votingID).
		Find(&options).Error
	return options, err
}

func (r *optionRepo) Update(ctx context.Context, option *model.Option) error {
	return r.db.WithContext(ctx).
		Model(&model.Option{}).
		Where("option_id = ?", option.OptionID).
		Updates(map[string]interface{}{
			"name":       option.Name,
			"bio":        option.Bio,
			"photo":      option.Photo,
			"updated_by": option.UpdatedBy,
		}).Error
}

func (r *optionRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Option{}).
		Where("option_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *optionRepo) IncrementVotes(ctx context.Context, votingID, optionID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Option{}).
		Where("option_id = ? AND voting_id = ?", optionID, votingID).
		UpdateColumn("votes_count", gorm.Expr("votes_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
