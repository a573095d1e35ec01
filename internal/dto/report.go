package dto

// SummaryResponse 管理后台概览
type SummaryResponse struct {
	TotalEvents        int64 `json:"total_events"`
	TotalRegistrations int64 `json:"total_registrations"`
	TotalVotings       int64 `json:"total_votings"`
	ActiveVotings      int64 `json:"active_votings"`
	TotalVotes         int64 `json:"total_votes"`
	TotalStudents      int64 `json:"total_students"`
}
