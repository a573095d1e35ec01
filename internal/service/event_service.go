package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/model"
	"emis-vote/backend/internal/repository"
	"emis-vote/backend/pkg/storage"
)

// ── 活动模块业务错误 ──

var (
	ErrEventNotFound    = errors.New("活动不存在")
	ErrEventDateInvalid = errors.New("活动日期格式错误，应为 YYYY-MM-DD")
)

// statusAuto 更新时清除显式状态
const statusAuto = "auto"

// EventService 活动业务接口
type EventService interface {
	List(ctx context.Context, req *dto.EventListRequest) ([]dto.EventResponse, int64, error)
	GetByID(ctx context.Context, id string) (*dto.EventResponse, error)
	Create(ctx context.Context, req *dto.CreateEventRequest, poster *multipart.FileHeader, callerID string) (*dto.EventResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateEventRequest, poster *multipart.FileHeader, callerID string) (*dto.EventResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	Participants(ctx context.Context, id string) ([]dto.ParticipantResponse, error)
	// Calendar 导出单个活动为 iCalendar（全天事件），返回内容与建议文件名
	Calendar(ctx context.Context, id string) ([]byte, string, error)
	// ExpirePast 为已过期且未显式设置状态的活动记录过期时间，返回更新行数
	ExpirePast(ctx context.Context) (int64, error)
}

type eventService struct {
	repo   *repository.Repository
	store  FileStore
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewEventService 创建 EventService 实例
func NewEventService(repo *repository.Repository, store FileStore, loc *time.Location, logger *zap.Logger) EventService {
	return &eventService{repo: repo, store: store, loc: loc, logger: logger, now: time.Now}
}

// ────────────────────── List ──────────────────────

func (s *eventService) List(ctx context.Context, req *dto.EventListRequest) ([]dto.EventResponse, int64, error) {
	now := s.now()
	filters := &repository.EventListFilters{
		Keyword: req.Keyword,
		Status:  req.Status,
		Today:   todayString(now, s.loc),
	}

	events, total, err := s.repo.Event.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出活动失败", zap.Error(err))
		return nil, 0, err
	}

	ids := lo.Map(events, func(e model.Event, _ int) string { return e.EventID })
	counts, err := s.repo.Registration.CountByEvents(ctx, ids)
	if err != nil {
		s.logger.Error("统计报名人数失败", zap.Error(err))
		return nil, 0, err
	}

	result := lo.Map(events, func(e model.Event, _ int) dto.EventResponse {
		return *toEventResponse(&e, counts[e.EventID], now, s.loc)
	})
	return result, total, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *eventService) GetByID(ctx context.Context, id string) (*dto.EventResponse, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.Registration.CountByEvent(ctx, id)
	if err != nil {
		s.logger.Error("统计报名人数失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toEventResponse(event, count, s.now(), s.loc), nil
}

// ────────────────────── Create ──────────────────────

func (s *eventService) Create(ctx context.Context, req *dto.CreateEventRequest, poster *multipart.FileHeader, callerID string) (*dto.EventResponse, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, ErrEventDateInvalid
	}

	event := &model.Event{
		Title:           req.Title,
		Description:     req.Description,
		Date:            datatypes.Date(date),
		Location:        req.Location,
		Status:          req.Status,
		Quota:           req.Quota,
		SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &callerID}},
	}

	if poster != nil {
		path, err := s.store.Save(poster, storage.KindPoster)
		if err != nil {
			return nil, err
		}
		event.Poster = path
	}

	if err := s.repo.Event.Create(ctx, event); err != nil {
		s.removeFile(event.Poster)
		s.logger.Error("创建活动失败", zap.Error(err))
		return nil, err
	}

	return toEventResponse(event, 0, s.now(), s.loc), nil
}

// ────────────────────── Update ──────────────────────

func (s *eventService) Update(ctx context.Context, id string, req *dto.UpdateEventRequest, poster *multipart.FileHeader, callerID string) (*dto.EventResponse, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	// 应用更新字段（仅更新非 nil 字段）
	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, ErrEventDateInvalid
		}
		if event.Day().Format(dateLayout) != date.Format(dateLayout) {
			// 改期后重新按日期推导，旧的过期记录作废
			event.ExpiredAt = nil
		}
		event.Date = datatypes.Date(date)
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Status != nil {
		if *req.Status == statusAuto {
			event.Status = ""
		} else {
			event.Status = *req.Status
		}
	}
	if req.Quota != nil {
		event.Quota = *req.Quota
	}

	oldPoster := event.Poster
	if poster != nil {
		path, err := s.store.Save(poster, storage.KindPoster)
		if err != nil {
			return nil, err
		}
		event.Poster = path
	}
	event.UpdatedBy = &callerID

	if err := s.repo.Event.Update(ctx, event); err != nil {
		if poster != nil {
			s.removeFile(event.Poster)
		}
		s.logger.Error("更新活动失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if poster != nil {
		s.removeFile(oldPoster)
	}

	count, err := s.repo.Registration.CountByEvent(ctx, id)
	if err != nil {
		s.logger.Error("统计报名人数失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toEventResponse(event, count, s.now(), s.loc), nil
}

// ────────────────────── Delete ──────────────────────

func (s *eventService) Delete(ctx context.Context, id string, callerID string) error {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Event.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除活动失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.removeFile(event.Poster)
	return nil
}

// ────────────────────── Participants ──────────────────────

func (s *eventService) Participants(ctx context.Context, id string) ([]dto.ParticipantResponse, error) {
	if _, err := s.getEvent(ctx, id); err != nil {
		return nil, err
	}

	regs, err := s.repo.Registration.ListByEvent(ctx, id)
	if err != nil {
		s.logger.Error("查询报名列表失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return lo.Map(regs, func(r model.Registration, _ int) dto.ParticipantResponse {
		return toParticipantResponse(&r)
	}), nil
}

// ────────────────────── Calendar ──────────────────────

func (s *eventService) Calendar(ctx context.Context, id string) ([]byte, string, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//emis-vote//events//EN")

	day := event.Day()
	vevent := cal.AddEvent(event.EventID + "@emis-vote")
	vevent.SetDtStampTime(s.now().UTC())
	vevent.SetSummary(event.Title)
	if event.Description != "" {
		vevent.SetDescription(event.Description)
	}
	if event.Location != "" {
		vevent.SetLocation(event.Location)
	}
	// DTEND 为开区间，全天活动结束于次日
	vevent.SetAllDayStartAt(day)
	vevent.SetAllDayEndAt(day.AddDate(0, 0, 1))

	filename := fmt.Sprintf("event_%s.ics", day.Format(dateLayout))
	return []byte(cal.Serialize()), filename, nil
}

// ────────────────────── ExpirePast ──────────────────────

func (s *eventService) ExpirePast(ctx context.Context) (int64, error) {
	today := todayString(s.now(), s.loc)
	n, err := s.repo.Event.MarkExpired(ctx, today)
	if err != nil {
		s.logger.Error("标记过期活动失败", zap.String("today", today), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// ── 内部辅助方法 ──

func (s *eventService) getEvent(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.repo.Event.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		s.logger.Error("查询活动失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return event, nil
}

// removeFile 删除被替换或随记录删除的文件，失败只记日志
func (s *eventService) removeFile(path string) {
	if path == "" || s.store == nil {
		return
	}
	if err := s.store.Remove(path); err != nil {
		s.logger.Warn("删除上传文件失败", zap.String("path", path), zap.Error(err))
	}
}

// parseDate 解析 YYYY-MM-DD 日历日
func parseDate(v string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, v, time.UTC)
}

// toEventResponse 转换为响应，status 为推导后的最终状态
func toEventResponse(e *model.Event, participants int64, now time.Time, loc *time.Location) *dto.EventResponse {
	return &dto.EventResponse{
		ID:               e.EventID,
		Title:            e.Title,
		Description:      e.Description,
		Date:             e.Day().Format(dateLayout),
		Location:         e.Location,
		Poster:           e.Poster,
		Status:           DeriveEventStatus(e.Status, e.Day(), now, loc),
		StatusExplicit:   e.Status != "",
		Quota:            e.Quota,
		ParticipantCount: participants,
		CreatedAt:        formatTime(e.CreatedAt),
		UpdatedAt:        formatTime(e.UpdatedAt),
	}
}

func toParticipantResponse(r *model.Registration) dto.ParticipantResponse {
	p := dto.ParticipantResponse{
		RegistrationID: r.RegistrationID,
		UserID:         r.UserID,
		RegisteredAt:   formatTime(r.CreatedAt),
	}
	if r.User != nil {
		p.Name = r.User.Name
		p.Username = r.User.Username
		p.Email = r.User.Email
	}
	return p
}
