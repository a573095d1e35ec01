package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/model"
	"emis-vote/backend/internal/repository"
	pkgerrors "emis-vote/backend/pkg/errors"
)

// ── 选票模块业务错误 ──

var (
	ErrAlreadyVoted      = errors.New("您已在该投票中投过票")
	ErrVotingNotActive   = errors.New("投票未开放")
	ErrOptionNotInVoting = errors.New("候选项不属于该投票")
)

// VoteService 投票提交、状态查询与计票
type VoteService interface {
	// Submit 提交选票
	// 选票写入与候选项计数递增在同一事务内完成；(voting_id, user_id) 唯一索引为最终裁决
	Submit(ctx context.Context, req *dto.SubmitVoteRequest, userID string) (*dto.VoteResponse, error)
	Status(ctx context.Context, votingID, userID string) (*dto.VoteStatusResponse, error)
	Results(ctx context.Context, votingID string) (*dto.VotingResultResponse, error)
}

type voteService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewVoteService 创建 VoteService 实例
func NewVoteService(repo *repository.Repository, logger *zap.Logger) VoteService {
	return &voteService{repo: repo, logger: logger}
}

// ────────────────────── Submit ──────────────────────

func (s *voteService) Submit(ctx context.Context, req *dto.SubmitVoteRequest, userID string) (*dto.VoteResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			rollback(tx)
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	// 1. 锁定投票行，串行化同一投票的并发提交
	voting, err := txRepo.Voting.GetByIDForUpdate(ctx, req.VotingID)
	if err != nil {
		rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVotingNotFound
		}
		s.logger.Error("锁定投票失败", zap.String("id", req.VotingID), zap.Error(err))
		return nil, err
	}

	// 2. 已投票
	if _, err := txRepo.Vote.GetByVotingAndUser(ctx, req.VotingID, userID); err == nil {
		rollback(tx)
		return nil, ErrAlreadyVoted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		rollback(tx)
		s.logger.Error("查询选票失败", zap.Error(err))
		return nil, err
	}

	// 3. 投票状态
	if !voting.IsActive() {
		rollback(tx)
		return nil, ErrVotingNotActive
	}

	// 4. 候选项归属
	option, err := txRepo.Option.GetByID(ctx, req.OptionID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		rollback(tx)
		s.logger.Error("查询候选项失败", zap.String("id", req.OptionID), zap.Error(err))
		return nil, err
	}
	if err != nil || option.VotingID != req.VotingID {
		rollback(tx)
		return nil, ErrOptionNotInVoting
	}

	// 5. 写入选票并计数
	vote := &model.Vote{
		VotingID: req.VotingID,
		UserID:   userID,
		OptionID: req.OptionID,
	}
	if err := txRepo.Vote.Create(ctx, vote); err != nil {
		rollback(tx)
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrAlreadyVoted
		}
		s.logger.Error("写入选票失败", zap.Error(err))
		return nil, err
	}

	if err := txRepo.Option.IncrementVotes(ctx, req.VotingID, req.OptionID); err != nil {
		rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOptionNotInVoting
		}
		s.logger.Error("候选项计票失败", zap.String("option_id", req.OptionID), zap.Error(err))
		return nil, err
	}

	if err := commit(tx); err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrAlreadyVoted
		}
		s.logger.Error("提交事务失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("选票已提交",
		zap.String("voting_id", req.VotingID),
		zap.String("option_id", req.OptionID),
		zap.String("user_id", userID))

	return &dto.VoteResponse{
		ID:        vote.VoteID,
		VotingID:  vote.VotingID,
		OptionID:  vote.OptionID,
		CreatedAt: formatTime(vote.CreatedAt),
	}, nil
}

// ────────────────────── Status ──────────────────────

func (s *voteService) Status(ctx context.Context, votingID, userID string) (*dto.VoteStatusResponse, error) {
	if _, err := s.repo.Voting.GetByID(ctx, votingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVotingNotFound
		}
		s.logger.Error("查询投票失败", zap.String("id", votingID), zap.Error(err))
		return nil, err
	}

	resp := &dto.VoteStatusResponse{VotingID: votingID, UserID: userID}

	vote, err := s.repo.Vote.GetByVotingAndUser(ctx, votingID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}
		s.logger.Error("查询选票失败", zap.Error(err))
		return nil, err
	}

	resp.HasVoted = true
	resp.OptionID = vote.OptionID
	resp.VotedAt = formatTime(vote.CreatedAt)
	if vote.Option != nil {
		resp.OptionName = vote.Option.Name
	}
	return resp, nil
}

// ────────────────────── Results ──────────────────────

func (s *voteService) Results(ctx context.Context, votingID string) (*dto.VotingResultResponse, error) {
	voting, err := s.repo.Voting.GetByID(ctx, votingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVotingNotFound
		}
		s.logger.Error("查询投票失败", zap.String("id", votingID), zap.Error(err))
		return nil, err
	}

	// 候选项已按创建顺序预加载
	ranked, total := RankOptions(voting.Options)

	return &dto.VotingResultResponse{
		VotingID:   voting.VotingID,
		Title:      voting.Title,
		Status:     voting.Status,
		TotalVotes: total,
		Options:    ranked,
	}, nil
}
