package service

import (
	"context"
	"mime/multipart"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"emis-vote/backend/config"
	"emis-vote/backend/internal/repository"
	"emis-vote/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	User         UserService
	Event        EventService
	Registration RegistrationService
	Voting       VotingService
	Vote         VoteService
	Report       ReportService
}

// FileStore 海报/照片存储（pkg/storage.LocalStore 实现）
type FileStore interface {
	Save(fh *multipart.FileHeader, kind string) (string, error)
	Remove(publicPath string) error
}

// TokenBlacklist 已注销 Token 黑名单（pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// NewService 创建 Service 聚合
// blacklist 为 nil 时注销与刷新不做黑名单校验（未部署 Redis）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	store FileStore,
	logger *zap.Logger,
) *Service {
	loc := cfg.Server.Location()
	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:         NewUserService(repo, logger),
		Event:        NewEventService(repo, store, loc, logger),
		Registration: NewRegistrationService(repo, loc, logger),
		Voting:       NewVotingService(repo, store, loc, logger),
		Vote:         NewVoteService(repo, logger),
		Report:       NewReportService(repo, loc, logger),
	}
}

// ── 公共辅助 ──

const timeLayout = "2006-01-02T15:04:05Z07:00"

const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

// rollback 回滚事务（mock 聚合下 tx 为 nil）
func rollback(tx *gorm.DB) {
	if tx != nil {
		tx.Rollback()
	}
}

// commit 提交事务（mock 聚合下 tx 为 nil）
func commit(tx *gorm.DB) error {
	if tx == nil {
		return nil
	}
	return tx.Commit().Error
}
