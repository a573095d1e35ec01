package model

import "time"

// 投票状态（由管理员设置，不按日期推导）
const (
	VotingStatusDraft  = "draft"
	VotingStatusActive = "active"
	VotingStatusClosed = "closed"
)

// Voting 投票表，对应 votings
type Voting struct {
	VotingID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"voting_id"`
	Title       string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Description string    `gorm:"type:text"                                      json:"description"`
	Poster      string    `gorm:"type:varchar(255)"                              json:"poster"`
	StartDate   time.Time `gorm:"not null"                                       json:"start_date"`
	EndDate     time.Time `gorm:"not null"                                       json:"end_date"`
	Status      string    `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"`
	VersionedModel

	// 关联
	Options []Option `gorm:"foreignKey:VotingID;references:VotingID" json:"options,omitempty"`
}

// TableName 指定表名
func (Voting) TableName() string { return "votings" }

// IsActive 是否处于可投票状态
func (v *Voting) IsActive() bool { return v.Status == VotingStatusActive }

// Option 候选项表，对应 options
// VotesCount 与 votes 表中引用该候选项的行数保持一致（同一事务内递增）
type Option struct {
	OptionID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"option_id"`
	VotingID   string `gorm:"type:uuid;not null;index"                       json:"voting_id"`
	Name       string `gorm:"type:varchar(100);not null"                     json:"name"`
	Bio        string `gorm:"type:text"                                      json:"bio"`
	Photo      string `gorm:"type:varchar(255)"                              json:"photo"`
	VotesCount int    `gorm:"not null;default:0"                             json:"votes_count"`
	SoftDeleteModel
}

// TableName 指定表名
func (Option) TableName() string { return "options" }

// Vote 选票表，对应 votes
// (voting_id, user_id) 唯一：一人一投票仅一票
type Vote struct {
	VoteID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"       json:"vote_id"`
	VotingID  string    `gorm:"type:uuid;not null;uniqueIndex:uk_votes_voting_user" json:"voting_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:uk_votes_voting_user" json:"user_id"`
	OptionID  string    `gorm:"type:uuid;not null;index"                            json:"option_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                  json:"created_at"`

	// 关联
	Option *Option `gorm:"foreignKey:OptionID;references:OptionID" json:"option,omitempty"`
}

// TableName 指定表名
func (Vote) TableName() string { return "votes" }
