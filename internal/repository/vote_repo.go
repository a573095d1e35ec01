package repository

import (
	"context"

	"gorm.io/gorm"

	"emis-vote/backend/internal/model"
)

// VoteRepository 选票数据访问接口
type VoteRepository interface {
	// Create 写入选票；(voting_id, user_id) 冲突时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, vote *model.Vote) error
	GetByVotingAndUser(ctx context.Context, votingID, userID string) (*model.Vote, error)
	CountByVoting(ctx context.Context, votingID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type voteRepo struct {
	db *gorm.DB
}

// NewVoteRepo 创建 VoteRepository 实例
func NewVoteRepo(db *gorm.DB) VoteRepository {
	return &voteRepo{db: db}
}

func (r *voteRepo) Create(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *voteRepo) GetByVotingAndUser(ctx context.Context, votingID, userID string) (*model.Vote, error) {
	var vote model.Vote
	err := r.db.WithContext(ctx).
		Preload("Option", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("voting_id = ? AND user_id = ?", votingID, userID).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepo) CountByVoting(ctx context.Context, votingID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Vote{}).
		Where("voting_id = ?", votingID).
		Count(&n).Error
	return n, err
}

func (r *voteRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Vote{}).Count(&n).Error
	return n, err
}
