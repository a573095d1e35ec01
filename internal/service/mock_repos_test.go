package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"emis-vote/backend/internal/model"
	"emis-vote/backend/internal/repository"
	pkgerrors "emis-vote/backend/pkg/errors"
)

// 所有 mock 均返回副本，避免 service 修改对象后绕过乐观锁等校验

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) find(match func(u *model.User) bool) (*model.User, error) {
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username })
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email })
}

func (m *mockUserRepo) GetByAccount(_ context.Context, account string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == account || u.Email == account })
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) ListWithFilters(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.users {
		if filters.Role != "" && u.Role != filters.Role {
			continue
		}
		if filters.Keyword != "" && !strings.Contains(u.Name+u.Username+u.Email, filters.Keyword) {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	var n int64
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// ── Mock EventRepository ──

type mockEventRepo struct {
	events map[string]*model.Event
	seq    int
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[string]*model.Event)}
}

func (m *mockEventRepo) Create(_ context.Context, event *model.Event) error {
	if event.EventID == "" {
		m.seq++
		event.EventID = fmt.Sprintf("event-%d", m.seq)
	}
	cp := *event
	m.events[event.EventID] = &cp
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	if e, ok := m.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) List(_ context.Context, filters *repository.EventListFilters, offset, limit int) ([]model.Event, int64, error) {
	var result []model.Event
	for _, e := range m.events {
		if filters.Keyword != "" && !strings.Contains(e.Title, filters.Keyword) {
			continue
		}
		if filters.Status != "" {
			status := e.Status
			if status == "" {
				status = model.EventStatusActive
				if e.Day().Format(dateLayout) < filters.Today {
					status = model.EventStatusExpired
				}
			}
			if status != filters.Status {
				continue
			}
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Day().After(result[j].Day()) })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockEventRepo) Update(_ context.Context, event *model.Event) error {
	cp := *event
	m.events[event.EventID] = &cp
	return nil
}

func (m *mockEventRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.events, id)
	return nil
}

func (m *mockEventRepo) MarkExpired(_ context.Context, today string) (int64, error) {
	var n int64
	for _, e := range m.events {
		if e.Status == "" && e.ExpiredAt == nil && e.Day().Format(dateLayout) < today {
			at := time.Now()
			e.ExpiredAt = &at
			n++
		}
	}
	return n, nil
}

func (m *mockEventRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.events)), nil
}

// ── Mock RegistrationRepository ──

type mockRegistrationRepo struct {
	regs  []*model.Registration
	users *mockUserRepo // 可选，用于预加载 User
	// forceDuplicate 模拟并发请求抢先写入，Create 直接返回唯一键冲突
	forceDuplicate bool
}

func newMockRegistrationRepo(users *mockUserRepo) *mockRegistrationRepo {
	return &mockRegistrationRepo{users: users}
}

func (m *mockRegistrationRepo) Create(_ context.Context, reg *model.Registration) error {
	if m.forceDuplicate {
		return gorm.ErrDuplicatedKey
	}
	for _, r := range m.regs {
		if r.EventID == reg.EventID && r.UserID == reg.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	reg.RegistrationID = fmt.Sprintf("reg-%d", len(m.regs)+1)
	reg.CreatedAt = time.Now()
	cp := *reg
	m.regs = append(m.regs, &cp)
	return nil
}

func (m *mockRegistrationRepo) GetByEventAndUser(_ context.Context, eventID, userID string) (*model.Registration, error) {
	for _, r := range m.regs {
		if r.EventID == eventID && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRegistrationRepo) ListByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	var result []model.Registration
	for _, r := range m.regs {
		if r.EventID != eventID {
			continue
		}
		cp := *r
		if m.users != nil {
			if u, ok := m.users.users[r.UserID]; ok {
				cp.User = u
			}
		}
		result = append(result, cp)
	}
	return result, nil
}

func (m *mockRegistrationRepo) ListByUser(_ context.Context, userID string) ([]model.Registration, error) {
	var result []model.Registration
	for _, r := range m.regs {
		if r.UserID == userID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRegistrationRepo) CountByEvent(_ context.Context, eventID string) (int64, error) {
	var n int64
	for _, r := range m.regs {
		if r.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (m *mockRegistrationRepo) CountByEvents(_ context.Context, eventIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(eventIDs))
	for _, id := range eventIDs {
		for _, r := range m.regs {
			if r.EventID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (m *mockRegistrationRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.regs)), nil
}

// ── Mock OptionRepository ──

type mockOptionRepo struct {
	options map[string]*model.Option
	order   []string // 创建顺序
}

func newMockOptionRepo() *mockOptionRepo {
	return &mockOptionRepo{options: make(map[string]*model.Option)}
}

func (m *mockOptionRepo) Create(_ context.Context, option *model.Option) error {
	if option.OptionID == "" {
		option.OptionID = fmt.Sprintf("opt-%d", len(m.order)+1)
	}
	cp := *option
	m.options[option.OptionID] = &cp
	m.order = append(m.order, option.OptionID)
	return nil
}

func (m *mockOptionRepo) GetByID(_ context.Context, id string) (*model.Option, error) {
	if o, ok := m.options[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOptionRepo) ListByVoting(_ context.Context, votingID string) ([]model.Option, error) {
	var result []model.Option
	for _, id := range m.order {
		if o, ok := m.options[id]; ok && o.VotingID == votingID {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (m *mockOptionRepo) Update(_ context.Context, option *model.Option) error {
	cp := *option
	m.options[option.OptionID] = &cp
	return nil
}

func (m *mockOptionRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.options, id)
	return nil
}

func (m *mockOptionRepo) IncrementVotes(_ context.Context, votingID, optionID string) error {
	o, ok := m.options[optionID]
	if !ok || o.VotingID != votingID {
		return gorm.ErrRecordNotFound
	}
	o.VotesCount++
	return nil
}

// ── Mock VotingRepository ──

type mockVotingRepo struct {
	votings map[string]*model.Voting
	options *mockOptionRepo
	seq     int
	locked  []string // GetByIDForUpdate 调用记录
}

func newMockVotingRepo(options *mockOptionRepo) *mockVotingRepo {
	return &mockVotingRepo{votings: make(map[string]*model.Voting), options: options}
}

func (m *mockVotingRepo) Create(_ context.Context, voting *model.Voting) error {
	if voting.VotingID == "" {
		m.seq++
		voting.VotingID = fmt.Sprintf("voting-%d", m.seq)
	}
	if voting.Version == 0 {
		voting.Version = 1
	}
	cp := *voting
	cp.Options = nil
	m.votings[voting.VotingID] = &cp
	return nil
}

func (m *mockVotingRepo) GetByID(ctx context.Context, id string) (*model.Voting, error) {
	v, ok := m.votings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	cp.Options, _ = m.options.ListByVoting(ctx, id)
	return &cp, nil
}

func (m *mockVotingRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Voting, error) {
	m.locked = append(m.locked, id)
	return m.GetByID(ctx, id)
}

func (m *mockVotingRepo) List(ctx context.Context, filters *repository.VotingListFilters, offset, limit int) ([]model.Voting, int64, error) {
	var result []model.Voting
	for id, v := range m.votings {
		if filters.Status != "" && v.Status != filters.Status {
			continue
		}
		if filters.Keyword != "" && !strings.Contains(v.Title, filters.Keyword) {
			continue
		}
		full, _ := m.GetByID(ctx, id)
		result = append(result, *full)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].VotingID < result[j].VotingID })
	return paginate(result, offset, limit), int64(len(result)), nil
}

func (m *mockVotingRepo) Update(_ context.Context, voting *model.Voting) error {
	stored, ok := m.votings[voting.VotingID]
	if !ok || stored.Version != voting.Version {
		return pkgerrors.ErrOptimisticLock
	}
	voting.Version++
	cp := *voting
	cp.Options = nil
	m.votings[voting.VotingID] = &cp
	return nil
}

func (m *mockVotingRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.votings, id)
	return nil
}

func (m *mockVotingRepo) CountByStatus(_ context.Context, status string) (int64, error) {
	var n int64
	for _, v := range m.votings {
		if status == "" || v.Status == status {
			n++
		}
	}
	return n, nil
}

// ── Mock VoteRepository ──

type mockVoteRepo struct {
	votes   map[string]*model.Vote // key: voting_id|user_id
	options *mockOptionRepo
	// forceDuplicate 模拟并发请求抢先写入，Create 直接返回唯一键冲突
	forceDuplicate bool
}

func newMockVoteRepo(options *mockOptionRepo) *mockVoteRepo {
	return &mockVoteRepo{votes: make(map[string]*model.Vote), options: options}
}

func voteKey(votingID, userID string) string { return votingID + "|" + userID }

func (m *mockVoteRepo) Create(_ context.Context, vote *model.Vote) error {
	key := voteKey(vote.VotingID, vote.UserID)
	if _, exists := m.votes[key]; exists || m.forceDuplicate {
		return gorm.ErrDuplicatedKey
	}
	vote.VoteID = fmt.Sprintf("vote-%d", len(m.votes)+1)
	vote.CreatedAt = time.Now()
	cp := *vote
	m.votes[key] = &cp
	return nil
}

func (m *mockVoteRepo) GetByVotingAndUser(_ context.Context, votingID, userID string) (*model.Vote, error) {
	v, ok := m.votes[voteKey(votingID, userID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	if o, ok := m.options.options[v.OptionID]; ok {
		opt := *o
		cp.Option = &opt
	}
	return &cp, nil
}

func (m *mockVoteRepo) CountByVoting(_ context.Context, votingID string) (int64, error) {
	var n int64
	for _, v := range m.votes {
		if v.VotingID == votingID {
			n++
		}
	}
	return n, nil
}

func (m *mockVoteRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.votes)), nil
}

// ── Mock FileStore ──

type mockFileStore struct {
	saved   []string
	removed []string
	err     error
}

func (m *mockFileStore) Save(fh *multipart.FileHeader, kind string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	path := fmt.Sprintf("/uploads/%s/%s", kind, fh.Filename)
	m.saved = append(m.saved, path)
	return path, nil
}

func (m *mockFileStore) Remove(publicPath string) error {
	m.removed = append(m.removed, publicPath)
	return nil
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	tokens map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{tokens: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.tokens[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.tokens[jti]
	return ok, nil
}

// ── 聚合 ──

type mockRepos struct {
	user         *mockUserRepo
	event        *mockEventRepo
	registration *mockRegistrationRepo
	voting       *mockVotingRepo
	option       *mockOptionRepo
	vote         *mockVoteRepo
}

// newMockRepository 构造未绑定数据库的 Repository 聚合（BeginTx 返回 nil 事务）
func newMockRepository() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	options := newMockOptionRepo()
	m := &mockRepos{
		user:         users,
		event:        newMockEventRepo(),
		registration: newMockRegistrationRepo(users),
		voting:       newMockVotingRepo(options),
		option:       options,
		vote:         newMockVoteRepo(options),
	}
	repo := &repository.Repository{
		User:         m.user,
		Event:        m.event,
		Registration: m.registration,
		Voting:       m.voting,
		Option:       m.option,
		Vote:         m.vote,
	}
	return repo, m
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
