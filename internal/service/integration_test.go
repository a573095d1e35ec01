//go:build integration

package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/model"
	"emis-vote/backend/internal/repository"
	"emis-vote/backend/internal/service"
	"emis-vote/backend/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=emis password=emis_password dbname=emis_vote_test sslmode=disable TimeZone=Asia/Jakarta"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func createUser(t *testing.T, role string, suffix string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         "测试用户",
		Username:     "it" + suffix,
		Email:        "it" + suffix + "@kampus.test",
		PasswordHash: "x",
		Role:         role,
	}
	if err := testDB.Create(u).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return u
}

// ═══════════════════════════════════════════════════════════
// 候选项变更与投票提交并发
// ═══════════════════════════════════════════════════════════

func TestDeleteOption_ConcurrentWithSubmit(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(testDB)
	log := zap.NewNop()
	votingSvc := service.NewVotingService(repo, nil, time.UTC, log)
	voteSvc := service.NewVoteService(repo, log)

	suffix := fmt.Sprint(time.Now().UnixNano())
	admin := createUser(t, model.RoleAdmin, suffix+"a")

	voting := &model.Voting{
		Title:     "并发测试投票",
		StartDate: time.Now().AddDate(0, 0, -1),
		EndDate:   time.Now().AddDate(0, 0, 7),
		Status:    model.VotingStatusActive,
	}
	if err := testDB.Create(voting).Error; err != nil {
		t.Fatalf("创建投票失败: %v", err)
	}
	target := &model.Option{VotingID: voting.VotingID, Name: "候选人 A"}
	other := &model.Option{VotingID: voting.VotingID, Name: "候选人 B"}
	if err := testDB.Create([]*model.Option{target, other}).Error; err != nil {
		t.Fatalf("创建候选项失败: %v", err)
	}

	const voters = 6
	students := make([]*model.User, voters)
	for i := range students {
		students[i] = createUser(t, model.RoleStudent, fmt.Sprintf("%s%d", suffix, i))
	}

	defer func() {
		db := testDB.Unscoped()
		db.Where("voting_id = ?", voting.VotingID).Delete(&model.Vote{})
		db.Where("voting_id = ?", voting.VotingID).Delete(&model.Option{})
		db.Where("voting_id = ?", voting.VotingID).Delete(&model.Voting{})
		for _, u := range append(students, admin) {
			db.Where("user_id = ?", u.UserID).Delete(&model.User{})
		}
	}()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		accepted  int
		deleteErr error
	)
	start := make(chan struct{})
	for _, u := range students {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			<-start
			_, err := voteSvc.Submit(ctx, &dto.SubmitVoteRequest{VotingID: voting.VotingID, OptionID: target.OptionID}, userID)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, service.ErrOptionNotInVoting) {
				t.Errorf("提交选票出现意外错误: %v", err)
			}
		}(u.UserID)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		deleteErr = votingSvc.DeleteOption(ctx, voting.VotingID, target.OptionID, admin.UserID)
	}()
	close(start)
	wg.Wait()

	switch {
	case deleteErr == nil && accepted != 0:
		t.Errorf("候选项已删除却仍接受了 %d 张选票", accepted)
	case deleteErr != nil && !errors.Is(deleteErr, service.ErrVotingHasVotes):
		t.Errorf("删除候选项出现意外错误: %v", deleteErr)
	case deleteErr != nil && accepted != voters:
		t.Errorf("删除被拒绝时所有选票都应成功，实际 %d", accepted)
	}

	// 选票总数必须等于未删除候选项计数之和
	var votes int64
	if err := testDB.Model(&model.Vote{}).Where("voting_id = ?", voting.VotingID).Count(&votes).Error; err != nil {
		t.Fatal(err)
	}
	var tallied int64
	if err := testDB.Model(&model.Option{}).
		Where("voting_id = ?", voting.VotingID).
		Select("COALESCE(SUM(votes_count), 0)").
		Scan(&tallied).Error; err != nil {
		t.Fatal(err)
	}
	if votes != tallied {
		t.Errorf("选票 %d 张，有效候选项计数合计 %d", votes, tallied)
	}
	if votes != int64(accepted) {
		t.Errorf("选票 %d 张，成功提交 %d 次", votes, accepted)
	}
}
