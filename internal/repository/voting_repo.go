package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"emis-vote/backend/internal/model"
	pkgerrors "emis-vote/backend/pkg/errors"
)

// VotingListFilters 投票列表过滤条件
type VotingListFilters struct {
	Status  string
	Keyword string
}

// VotingRepository 投票数据访问接口
type VotingRepository interface {
	Create(ctx context.Context, voting *model.Voting) error
	// GetByID 查询投票并按创建顺序预加载候选项
	GetByID(ctx context.Context, id string) (*model.Voting, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 锁定投票行
	// 必须在已有事务的 *gorm.DB 上调用（通过 Repository.WithTx 注入事务连接）
	GetByIDForUpdate(ctx context.Context, id string) (*model.Voting, error)
	List(ctx context.Context, filters *VotingListFilters, offset, limit int) ([]model.Voting, int64, error)
	// Update 乐观锁更新，版本不一致时返回 ErrOptimisticLock
	Update(ctx context.Context, voting *model.Voting) error
	Delete(ctx context.Context, id string, deletedBy string) error
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type votingRepo struct {
	db *gorm.DB
}

// NewVotingRepo 创建 VotingRepository 实例
func NewVotingRepo(db *gorm.DB) VotingRepository {
	return &votingRepo{db: db}
}

func orderOptions(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, option_id ASC")
}

func (r *votingRepo) Create(ctx context.Context, voting *model.Voting) error {
	return r.db.WithContext(ctx).Create(voting).Error
}

func (r *votingRepo) GetByID(ctx context.Context, id string) (*model.Voting, error) {
	var voting model.Voting
	err := r.db.WithContext(ctx).
		Preload("Options", orderOptions).
		Where("voting_id = ?", id).
		First(&voting).Error
	if err != nil {
		return nil, err
	}
	return &voting, nil
}

func (r *votingRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Voting, error) {
	var voting model.Voting
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("voting_id = ?", id).
		First(&voting).Error
	if err != nil {
		return nil, err
	}
	return &voting, nil
}

func (r *votingRepo) List(ctx context.Context, filters *VotingListFilters, offset, limit int) ([]model.Voting, int64, error) {
	var votings []model.Voting
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Voting{})

	if filters.Status != "" {
		db = db.Where("status = ?", filters.Status)
	}
	if filters.Keyword != "" {
		db = db.Where("title ILIKE ?", "%"+filters.Keyword+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Options", orderOptions).
		Offset(offset).Limit(limit).
		Order("start_date DESC, created_at DESC").
		Find(&votings).Error
	return votings, total, err
}

func (r *votingRepo) Update(ctx context.Context, voting *model.Voting) error {
	oldVersion := voting.Version
	result := r.db.WithContext(ctx).
		Model(&model.Voting{}).
		Where("voting_id = ? AND version = ?", voting.VotingID, oldVersion).
		Updates(map[string]interface{}{
			"title":       voting.Title,
			"description": voting.Description,
			"poster":      voting.Poster,
			"start_date":  voting.StartDate,
			"end_date":    voting.EndDate,
			"status":      voting.Status,
			"updated_by":  voting.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	voting.Version = oldVersion + 1
	return nil
}

func (r *votingRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Voting{}).
		Where("voting_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *votingRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	db := r.db.WithContext(ctx).Model(&model.Voting{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Count(&n).Error
	return n, err
}
