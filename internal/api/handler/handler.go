package handler

import (
	"emis-vote/backend/config"
	"emis-vote/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Event        *EventHandler
	Registration *RegistrationHandler
	Voting       *VotingHandler
	Vote         *VoteHandler
	Report       *ReportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, &cfg.Auth),
		User:         NewUserHandler(svc.User),
		Event:        NewEventHandler(svc.Event),
		Registration: NewRegistrationHandler(svc.Registration),
		Voting:       NewVotingHandler(svc.Voting),
		Vote:         NewVoteHandler(svc.Vote),
		Report:       NewReportHandler(svc.Report),
	}
}
