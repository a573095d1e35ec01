package service

import (
	"context"
	"errors"
	"mime/multipart"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/model"
	"emis-vote/backend/internal/repository"
	"emis-vote/backend/pkg/storage"
)

// ── 投票模块业务错误 ──

var (
	ErrVotingNotFound    = errors.New("投票不存在")
	ErrVotingDateInvalid = errors.New("投票日期格式错误，应为 YYYY-MM-DD")
	ErrVotingDateRange   = errors.New("结束日期不能早于开始日期")
	ErrVotingHasVotes    = errors.New("投票已有选票，不能再修改候选项")
	ErrOptionNotFound    = errors.New("候选项不存在")
)

// VotingService 投票与候选项管理接口
type VotingService interface {
	List(ctx context.Context, req *dto.VotingListRequest) ([]dto.VotingResponse, int64, error)
	GetByID(ctx context.Context, id string) (*dto.VotingResponse, error)
	Create(ctx context.Context, req *dto.CreateVotingRequest, poster *multipart.FileHeader, callerID string) (*dto.VotingResponse, error)
	// Update 乐观锁更新，version 与当前版本不一致时返回 pkgerrors.ErrOptimisticLock
	Update(ctx context.Context, id string, req *dto.UpdateVotingRequest, poster *multipart.FileHeader, callerID string) (*dto.VotingResponse, error)
	Delete(ctx context.Context, id string, callerID string) error

	ListOptions(ctx context.Context, votingID string) ([]dto.OptionResponse, error)
	CreateOption(ctx context.Context, votingID string, req *dto.CreateOptionRequest, photo *multipart.FileHeader, callerID string) (*dto.OptionResponse, error)
	UpdateOption(ctx context.Context, votingID, optionID string, req *dto.UpdateOptionRequest, photo *multipart.FileHeader, callerID string) (*dto.OptionResponse, error)
	DeleteOption(ctx context.Context, votingID, optionID string, callerID string) error
}

type votingService struct {
	repo   *repository.Repository
	store  FileStore
	loc    *time.Location
	logger *zap.Logger
}

// NewVotingService 创建 VotingService 实例
func NewVotingService(repo *repository.Repository, store FileStore, loc *time.Location, logger *zap.Logger) VotingService {
	if loc == nil {
		loc = time.UTC
	}
	return &votingService{repo: repo, store: store, loc: loc, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *votingService) List(ctx context.Context, req *dto.VotingListRequest) ([]dto.VotingResponse, int64, error) {
	filters := &repository.VotingListFilters{
		Status:  req.Status,
		Keyword: req.Keyword,
	}

	votings, total, err := s.repo.Voting.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出投票失败", zap.Error(err))
		return nil, 0, err
	}

	result := lo.Map(votings, func(v model.Voting, _ int) dto.VotingResponse {
		return *toVotingResponse(&v)
	})
	return result, total, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *votingService) GetByID(ctx context.Context, id string) (*dto.VotingResponse, error) {
	voting, err := s.getVoting(ctx, id)
	if err != nil {
		return nil, err
	}
	return toVotingResponse(voting), nil
}

// ────────────────────── Create ──────────────────────

func (s *votingService) Create(ctx context.Context, req *dto.CreateVotingRequest, poster *multipart.FileHeader, callerID string) (*dto.VotingResponse, error) {
	start, end, err := s.parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.VotingStatusDraft
	}

	voting := &model.Voting{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
		Status:      status,
		VersionedModel: model.VersionedModel{
			SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &callerID}},
			Version:         1,
		},
	}

	if poster != nil {
		path, err := s.store.Save(poster, storage.KindPoster)
		if err != nil {
			return nil, err
		}
		voting.Poster = path
	}

	if err := s.repo.Voting.Create(ctx, voting); err != nil {
		s.removeFile(voting.Poster)
		s.logger.Error("创建投票失败", zap.Error(err))
		return nil, err
	}

	return toVotingResponse(voting), nil
}

// ────────────────────── Update ──────────────────────

func (s *votingService) Update(ctx context.Context, id string, req *dto.UpdateVotingRequest, poster *multipart.FileHeader, callerID string) (*dto.VotingResponse, error) {
	voting, err := s.getVoting(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		voting.Title = *req.Title
	}
	if req.Description != nil {
		voting.Description = *req.Description
	}
	if req.Status != nil {
		voting.Status = *req.Status
	}

	// 日期按日历日重新组合后整体校验
	startStr := voting.StartDate.In(s.loc).Format(dateLayout)
	endStr := voting.EndDate.In(s.loc).Format(dateLayout)
	if req.StartDate != nil {
		startStr = *req.StartDate
	}
	if req.EndDate != nil {
		endStr = *req.EndDate
	}
	if req.StartDate != nil || req.EndDate != nil {
		start, end, err := s.parseRange(startStr, endStr)
		if err != nil {
			return nil, err
		}
		voting.StartDate, voting.EndDate = start, end
	}

	oldPoster := voting.Poster
	if poster != nil {
		path, err := s.store.Save(poster, storage.KindPoster)
		if err != nil {
			return nil, err
		}
		voting.Poster = path
	}

	// 以客户端持有的版本号做乐观锁
	voting.Version = req.Version
	voting.UpdatedBy = &callerID

	if err := s.repo.Voting.Update(ctx, voting); err != nil {
		if poster != nil {
			s.removeFile(voting.Poster)
		}
		s.logger.Error("更新投票失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if poster != nil {
		s.removeFile(oldPoster)
	}

	return toVotingResponse(voting), nil
}

// ────────────────────── Delete ──────────────────────

func (s *votingService) Delete(ctx context.Context, id string, callerID string) error {
	voting, err := s.getVoting(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Voting.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除投票失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.removeFile(voting.Poster)
	return nil
}

// ────────────────────── ListOptions ──────────────────────

func (s *votingService) ListOptions(ctx context.Context, votingID string) ([]dto.OptionResponse, error) {
	if _, err := s.getVoting(ctx, votingID); err != nil {
		return nil, err
	}

	options, err := s.repo.Option.ListByVoting(ctx, votingID)
	if err != nil {
		s.logger.Error("查询候选项失败", zap.String("voting_id", votingID), zap.Error(err))
		return nil, err
	}

	return lo.Map(options, func(o model.Option, _ int) dto.OptionResponse {
		return toOptionResponse(&o)
	}), nil
}

// ────────────────────── CreateOption ──────────────────────

func (s *votingService) CreateOption(ctx context.Context, votingID string, req *dto.CreateOptionRequest, photo *multipart.FileHeader, callerID string) (*dto.OptionResponse, error) {
	option := &model.Option{
		VotingID:        votingID,
		Name:            req.Name,
		Bio:             req.Bio,
		SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &callerID}},
	}

	if photo != nil {
		path, err := s.store.Save(photo, storage.KindPhoto)
		if err != nil {
			return nil, err
		}
		option.Photo = path
	}

	err := s.mutateOptions(ctx, votingID, func(txRepo *repository.Repository) error {
		if err := txRepo.Option.Create(ctx, option); err != nil {
			s.logger.Error("创建候选项失败", zap.String("voting_id", votingID), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		s.removeFile(option.Photo)
		return nil, err
	}

	resp := toOptionResponse(option)
	return &resp, nil
}

// ────────────────────── UpdateOption ──────────────────────

func (s *votingService) UpdateOption(ctx context.Context, votingID, optionID string, req *dto.UpdateOptionRequest, photo *multipart.FileHeader, callerID string) (*dto.OptionResponse, error) {
	var newPhoto string
	if photo != nil {
		path, err := s.store.Save(photo, storage.KindPhoto)
		if err != nil {
			return nil, err
		}
		newPhoto = path
	}

	var option *model.Option
	var oldPhoto string
	err := s.mutateOptions(ctx, votingID, func(txRepo *repository.Repository) error {
		var err error
		option, err = s.getOption(ctx, txRepo, votingID, optionID)
		if err != nil {
			return err
		}

		if req.Name != nil {
			option.Name = *req.Name
		}
		if req.Bio != nil {
			option.Bio = *req.Bio
		}
		oldPhoto = option.Photo
		if newPhoto != "" {
			option.Photo = newPhoto
		}
		option.UpdatedBy = &callerID

		if err := txRepo.Option.Update(ctx, option); err != nil {
			s.logger.Error("更新候选项失败", zap.String("id", optionID), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		s.removeFile(newPhoto)
		return nil, err
	}
	if newPhoto != "" {
		s.removeFile(oldPhoto)
	}

	resp := toOptionResponse(option)
	return &resp, nil
}

// ────────────────────── DeleteOption ──────────────────────

func (s *votingService) DeleteOption(ctx context.Context, votingID, optionID string, callerID string) error {
	var photo string
	err := s.mutateOptions(ctx, votingID, func(txRepo *repository.Repository) error {
		option, err := s.getOption(ctx, txRepo, votingID, optionID)
		if err != nil {
			return err
		}
		photo = option.Photo

		if err := txRepo.Option.Delete(ctx, optionID, callerID); err != nil {
			s.logger.Error("删除候选项失败", zap.String("id", optionID), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeFile(photo)
	return nil
}

// ── 内部辅助方法 ──

func (s *votingService) getVoting(ctx context.Context, id string) (*model.Voting, error) {
	voting, err := s.repo.Voting.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVotingNotFound
		}
		s.logger.Error("查询投票失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return voting, nil
}

// getOption 查询候选项并校验其归属
func (s *votingService) getOption(ctx context.Context, repo *repository.Repository, votingID, optionID string) (*model.Option, error) {
	option, err := repo.Option.GetByID(ctx, optionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOptionNotFound
		}
		s.logger.Error("查询候选项失败", zap.String("id", optionID), zap.Error(err))
		return nil, err
	}
	if option.VotingID != votingID {
		return nil, ErrOptionNotFound
	}
	return option, nil
}

// mutateOptions 在事务内锁定投票行，确认尚无选票后执行候选项变更
// 与 VoteService.Submit 锁同一行，变更与投票提交串行执行
func (s *votingService) mutateOptions(ctx context.Context, votingID string, fn func(txRepo *repository.Repository) error) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			rollback(tx)
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	if _, err := txRepo.Voting.GetByIDForUpdate(ctx, votingID); err != nil {
		rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVotingNotFound
		}
		s.logger.Error("锁定投票失败", zap.String("id", votingID), zap.Error(err))
		return err
	}

	n, err := txRepo.Vote.CountByVoting(ctx, votingID)
	if err != nil {
		rollback(tx)
		s.logger.Error("统计选票失败", zap.String("voting_id", votingID), zap.Error(err))
		return err
	}
	if n > 0 {
		rollback(tx)
		return ErrVotingHasVotes
	}

	if err := fn(txRepo); err != nil {
		rollback(tx)
		return err
	}

	if err := commit(tx); err != nil {
		s.logger.Error("提交事务失败", zap.Error(err))
		return err
	}
	return nil
}

// parseRange 开始日取当天 00:00，结束日取当天 23:59:59（业务时区）
func (s *votingService) parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, startStr, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrVotingDateInvalid
	}
	end, err := time.ParseInLocation(dateLayout, endStr, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrVotingDateInvalid
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrVotingDateRange
	}
	return start, end.Add(24*time.Hour - time.Second), nil
}

func (s *votingService) removeFile(path string) {
	if path == "" || s.store == nil {
		return
	}
	if err := s.store.Remove(path); err != nil {
		s.logger.Warn("删除上传文件失败", zap.String("path", path), zap.Error(err))
	}
}

func toVotingResponse(v *model.Voting) *dto.VotingResponse {
	total := 0
	options := make([]dto.OptionResponse, 0, len(v.Options))
	for i := range v.Options {
		total += v.Options[i].VotesCount
		options = append(options, toOptionResponse(&v.Options[i]))
	}
	return &dto.VotingResponse{
		ID:          v.VotingID,
		Title:       v.Title,
		Description: v.Description,
		Poster:      v.Poster,
		StartDate:   formatTime(v.StartDate),
		EndDate:     formatTime(v.EndDate),
		Status:      v.Status,
		Version:     v.Version,
		TotalVotes:  total,
		Options:     options,
		CreatedAt:   formatTime(v.CreatedAt),
		UpdatedAt:   formatTime(v.UpdatedAt),
	}
}

func toOptionResponse(o *model.Option) dto.OptionResponse {
	return dto.OptionResponse{
		ID:         o.OptionID,
		VotingID:   o.VotingID,
		Name:       o.Name,
		Bio:        o.Bio,
		Photo:      o.Photo,
		VotesCount: o.VotesCount,
	}
}
