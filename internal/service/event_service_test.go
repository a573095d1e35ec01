package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/model"
)

func setupTestEventService() (*eventService, *mockRepos, *mockFileStore) {
	repo, mocks := newMockRepository()
	store := &mockFileStore{}
	svc := NewEventService(repo, store, time.UTC, zap.NewNop()).(*eventService)
	svc.now = fixedClock(testNow)
	return svc, mocks, store
}

func strPtr(s string) *string { return &s }

// ── Create ──

func TestEventService_Create_DerivesStatus(t *testing.T) {
	svc, _, store := setupTestEventService()
	poster := &multipart.FileHeader{Filename: "poster.png"}

	resp, err := svc.Create(context.Background(), &dto.CreateEventRequest{
		Title: "毕业典礼",
		Date:  "2024-06-09",
		Quota: 100,
	}, poster, "admin-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Status != model.EventStatusExpired {
		t.Errorf("昨天的活动应为 expired，实际=%s", resp.Status)
	}
	if resp.StatusExplicit {
		t.Error("未设置状态时 status_explicit 应为 false")
	}
	if resp.Date != "2024-06-09" {
		t.Errorf("期望日期 2024-06-09，实际=%s", resp.Date)
	}
	if resp.Poster != "/uploads/posters/poster.png" || len(store.saved) != 1 {
		t.Errorf("海报应已保存，实际 poster=%s", resp.Poster)
	}
}

func TestEventService_Create_InvalidDate(t *testing.T) {
	svc, _, _ := setupTestEventService()

	_, err := svc.Create(context.Background(), &dto.CreateEventRequest{Title: "x", Date: "2024/06/10"}, nil, "admin-1")
	if !errors.Is(err, ErrEventDateInvalid) {
		t.Errorf("期望 ErrEventDateInvalid，实际: %v", err)
	}
}

func TestEventService_Create_UploadRejected(t *testing.T) {
	svc, m, store := setupTestEventService()
	store.err = errors.New("仅支持 JPEG/PNG 图片")

	_, err := svc.Create(context.Background(), &dto.CreateEventRequest{Title: "x", Date: "2024-06-10"},
		&multipart.FileHeader{Filename: "a.gif"}, "admin-1")
	if err == nil {
		t.Fatal("上传失败时应返回错误")
	}
	if len(m.event.events) != 0 {
		t.Error("上传失败时不应创建活动")
	}
}

// ── Update ──

func TestEventService_Update_StatusAutoClearsExplicit(t *testing.T) {
	svc, m, _ := setupTestEventService()
	id := seedEvent(m, "讲座", day(2024, 6, 20), model.EventStatusExpired)

	resp, err := svc.Update(context.Background(), id, &dto.UpdateEventRequest{Status: strPtr("auto")}, nil, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if resp.Status != model.EventStatusActive || resp.StatusExplicit {
		t.Errorf("清除显式状态后应推导为 active，实际=%+v", resp)
	}
	if m.event.events[id].Status != "" {
		t.Error("存储的状态应被清空")
	}
}

func TestEventService_Update_ReplacesPoster(t *testing.T) {
	svc, m, store := setupTestEventService()
	id := seedEvent(m, "讲座", day(2024, 6, 20), "")
	m.event.events[id].Poster = "/uploads/posters/old.png"

	_, err := svc.Update(context.Background(), id, &dto.UpdateEventRequest{Title: strPtr("新讲座")},
		&multipart.FileHeader{Filename: "new.png"}, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if m.event.events[id].Poster != "/uploads/posters/new.png" {
		t.Errorf("海报未更新: %s", m.event.events[id].Poster)
	}
	if len(store.removed) != 1 || store.removed[0] != "/uploads/posters/old.png" {
		t.Errorf("旧海报应被删除，实际=%v", store.removed)
	}
}

func TestEventService_Update_NotFound(t *testing.T) {
	svc, _, _ := setupTestEventService()

	_, err := svc.Update(context.Background(), "missing", &dto.UpdateEventRequest{}, nil, "admin-1")
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("期望 ErrEventNotFound，实际: %v", err)
	}
}

// ── List ──

func TestEventService_List_FilterByDerivedStatus(t *testing.T) {
	svc, m, _ := setupTestEventService()
	_ = seedEvent(m, "往期", day(2024, 6, 9), "")
	today := seedEvent(m, "今天", day(2024, 6, 10), "")
	_ = seedEvent(m, "强制过期", day(2024, 7, 1), model.EventStatusExpired)
	ctx := context.Background()

	_ = m.registration.Create(ctx, &model.Registration{EventID: today, UserID: "u1"})
	_ = m.registration.Create(ctx, &model.Registration{EventID: today, UserID: "u2"})

	active, total, err := svc.List(ctx, &dto.EventListRequest{Status: model.EventStatusActive})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || active[0].ID != today {
		t.Fatalf("active 过滤结果错误: total=%d", total)
	}
	if active[0].ParticipantCount != 2 {
		t.Errorf("期望 participant_count=2，实际=%d", active[0].ParticipantCount)
	}

	expired, total, _ := svc.List(ctx, &dto.EventListRequest{Status: model.EventStatusExpired})
	if total != 2 {
		t.Fatalf("expired 期望 2 条，实际=%d", total)
	}
	for _, e := range expired {
		if e.Status != model.EventStatusExpired {
			t.Errorf("列表项状态应为 expired，实际=%s", e.Status)
		}
	}
}

// ── Participants / Delete ──

func TestEventService_Participants(t *testing.T) {
	svc, m, _ := setupTestEventService()
	id := seedEvent(m, "讲座", day(2024, 6, 20), "")
	ctx := context.Background()

	student := &model.User{Name: "王五", Username: "wangwu", Email: "wangwu@test.com", Role: model.RoleStudent}
	_ = m.user.Create(ctx, student)
	_ = m.registration.Create(ctx, &model.Registration{EventID: id, UserID: student.UserID})

	list, err := svc.Participants(ctx, id)
	if err != nil {
		t.Fatalf("Participants 应成功: %v", err)
	}
	if len(list) != 1 || list[0].Username != "wangwu" {
		t.Errorf("参与者列表错误: %+v", list)
	}
}

func TestEventService_Delete_RemovesPoster(t *testing.T) {
	svc, m, store := setupTestEventService()
	id := seedEvent(m, "讲座", day(2024, 6, 20), "")
	m.event.events[id].Poster = "/uploads/posters/p.png"

	if err := svc.Delete(context.Background(), id, "admin-1"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := m.event.events[id]; ok {
		t.Error("活动应被删除")
	}
	if len(store.removed) != 1 {
		t.Error("海报应被删除")
	}
}

// ── Calendar ──

func TestEventService_Calendar_AllDayEvent(t *testing.T) {
	svc, m, _ := setupTestEventService()
	id := seedEvent(m, "Orientation", day(2024, 6, 10), "")

	data, filename, err := svc.Calendar(context.Background(), id)
	if err != nil {
		t.Fatalf("Calendar 应成功: %v", err)
	}
	if filename != "event_2024-06-10.ics" {
		t.Errorf("文件名错误: %s", filename)
	}

	ics := string(data)
	for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VEVENT", "SUMMARY:Orientation", "20240610", "20240611"} {
		if !strings.Contains(ics, want) {
			t.Errorf("日历内容缺少 %q", want)
		}
	}
}

// ── ExpirePast ──

func TestEventService_ExpirePast(t *testing.T) {
	svc, m, _ := setupTestEventService()
	past := seedEvent(m, "往期", day(2024, 6, 9), "")
	today := seedEvent(m, "今天", day(2024, 6, 10), "")
	forced := seedEvent(m, "显式进行中", day(2024, 1, 1), model.EventStatusActive)

	n, err := svc.ExpirePast(context.Background())
	if err != nil {
		t.Fatalf("ExpirePast 应成功: %v", err)
	}
	if n != 1 {
		t.Errorf("期望更新 1 条，实际=%d", n)
	}
	if m.event.events[past].ExpiredAt == nil {
		t.Error("过去的活动应记录过期时间")
	}
	if m.event.events[past].Status != "" {
		t.Errorf("定时任务不应写入 status，实际=%q", m.event.events[past].Status)
	}
	if m.event.events[today].ExpiredAt != nil {
		t.Error("当天活动不应被标记")
	}
	if m.event.events[forced].ExpiredAt != nil || m.event.events[forced].Status != model.EventStatusActive {
		t.Error("显式状态不应被覆盖")
	}

	// 已标记的活动不重复计数
	n, err = svc.ExpirePast(context.Background())
	if err != nil || n != 0 {
		t.Errorf("再次执行应更新 0 条，实际=%d err=%v", n, err)
	}
}

func TestEventService_ExpiredThenRescheduled_AcceptsRegistration(t *testing.T) {
	svc, m, _ := setupTestEventService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &dto.CreateEventRequest{Title: "社团招新", Date: "2024-06-09"}, nil, "admin-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if _, err := svc.ExpirePast(ctx); err != nil {
		t.Fatalf("ExpirePast 应成功: %v", err)
	}

	// 仅修改日期，不传 status
	updated, err := svc.Update(ctx, created.ID, &dto.UpdateEventRequest{Date: strPtr("2024-06-20")}, nil, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if updated.Status != model.EventStatusActive {
		t.Errorf("改期后应推导为 active，实际=%s", updated.Status)
	}
	if updated.StatusExplicit {
		t.Error("定时任务标记后 status_explicit 仍应为 false")
	}
	if m.event.events[created.ID].ExpiredAt != nil {
		t.Error("改期后过期记录应被清除")
	}

	regSvc := NewRegistrationService(svc.repo, time.UTC, zap.NewNop()).(*registrationService)
	regSvc.now = fixedClock(testNow)
	if _, err := regSvc.Register(ctx, &dto.RegisterEventRequest{EventID: created.ID}, "user-1"); err != nil {
		t.Errorf("改期后的活动应允许报名，实际: %v", err)
	}
}
