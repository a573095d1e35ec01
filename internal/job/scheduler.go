// Package job 定时任务：目前仅负责把过期活动的状态落库
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 单次任务执行超时
const runTimeout = 2 * time.Minute

// EventExpirer 将日期已过且未显式设置状态的活动标记为 expired
type EventExpirer interface {
	ExpirePast(ctx context.Context) (int64, error)
}

// Scheduler 基于 robfig/cron 的定时任务调度器
type Scheduler struct {
	cron    *cron.Cron
	expirer EventExpirer
	logger  *zap.Logger
}

// NewScheduler 创建调度器并注册任务
// spec 为标准 5 段 cron 表达式，按业务时区 loc 触发
func NewScheduler(spec string, loc *time.Location, expirer EventExpirer, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(logger))),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	s := &Scheduler{cron: c, expirer: expirer, logger: logger}

	if _, err := c.AddFunc(spec, s.ExpirePastEvents); err != nil {
		return nil, fmt.Errorf("注册过期活动任务失败（%s）: %w", spec, err)
	}
	return s, nil
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("定时任务已启动", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

// ExpirePastEvents 把日期早于今天的活动状态持久化为 expired
func (s *Scheduler) ExpirePastEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	n, err := s.expirer.ExpirePast(ctx)
	if err != nil {
		s.logger.Error("过期活动任务执行失败", zap.Error(err))
		return
	}
	s.logger.Info("过期活动任务完成", zap.Int64("expired", n))
}
