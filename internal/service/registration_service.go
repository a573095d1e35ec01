package service

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/model"
	"emis-vote/backend/internal/repository"
	pkgerrors "emis-vote/backend/pkg/errors"
)

// ── 报名模块业务错误 ──

var (
	ErrAlreadyRegistered = errors.New("已报名该活动")
	ErrEventExpired      = errors.New("活动已结束，无法报名")
)

// RegistrationService 活动报名业务接口
type RegistrationService interface {
	// Register 报名；(event_id, user_id) 唯一，重复报名返回 ErrAlreadyRegistered
	Register(ctx context.Context, req *dto.RegisterEventRequest, userID string) (*dto.RegistrationResponse, error)
	Check(ctx context.Context, eventID, userID string) (*dto.RegistrationCheckResponse, error)
	ListMine(ctx context.Context, userID string) ([]dto.MyRegistrationResponse, error)
}

type registrationService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistrationService 创建 RegistrationService 实例
func NewRegistrationService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) RegistrationService {
	return &registrationService{repo: repo, loc: loc, logger: logger, now: time.Now}
}

// ────────────────────── Register ──────────────────────

func (s *registrationService) Register(ctx context.Context, req *dto.RegisterEventRequest, userID string) (*dto.RegistrationResponse, error) {
	event, err := s.repo.Event.GetByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("查询活动失败", zap.String("id", req.EventID), zap.Error(err))
		return nil, err
	}

	if DeriveEventStatus(event.Status, event.Day(), s.now(), s.loc) == model.EventStatusExpired {
		return nil, ErrEventExpired
	}

	if _, err := s.repo.Registration.GetByEventAndUser(ctx, req.EventID, userID); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询报名记录失败", zap.Error(err))
		return nil, err
	}

	reg := &model.Registration{
		EventID: req.EventID,
		UserID:  userID,
	}
	if err := s.repo.Registration.Create(ctx, reg); err != nil {
		// 并发重复报名由唯一索引兜底
		if pkgerrors.IsDuplicateKey(err) {
			return nil, ErrAlreadyRegistered
		}
		s.logger.Error("创建报名记录失败", zap.String("event_id", req.EventID), zap.Error(err))
		return nil, err
	}

	return &dto.RegistrationResponse{
		ID:        reg.RegistrationID,
		EventID:   reg.EventID,
		UserID:    reg.UserID,
		CreatedAt: formatTime(reg.CreatedAt),
	}, nil
}

// ────────────────────── Check ──────────────────────

func (s *registrationService) Check(ctx context.Context, eventID, userID string) (*dto.RegistrationCheckResponse, error) {
	if _, err := s.repo.Event.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("查询活动失败", zap.String("id", eventID), zap.Error(err))
		return nil, err
	}

	resp := &dto.RegistrationCheckResponse{EventID: eventID, UserID: userID}

	reg, err := s.repo.Registration.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resp, nil
		}
		s.logger.Error("查询报名记录失败", zap.Error(err))
		return nil, err
	}

	resp.Registered = true
	resp.RegisteredAt = formatTime(reg.CreatedAt)
	return resp, nil
}

// ────────────────────── ListMine ──────────────────────

func (s *registrationService) ListMine(ctx context.Context, userID string) ([]dto.MyRegistrationResponse, error) {
	regs, err := s.repo.Registration.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询我的报名失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	return lo.Map(regs, func(r model.Registration, _ int) dto.MyRegistrationResponse {
		item := dto.MyRegistrationResponse{
			RegistrationID: r.RegistrationID,
			RegisteredAt:   formatTime(r.CreatedAt),
		}
		if r.Event != nil {
			item.Event = toEventResponse(r.Event, 0, now, s.loc)
		}
		return item
	}), nil
}
