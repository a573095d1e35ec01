package service

import (
	"math"
	"sort"

	"emis-vote/backend/internal/dto"
	"emis-vote/backend/internal/model"
)

// RankOptions 计票排名
//
// 输入按候选项创建顺序排列；按票数降序做稳定排序，同票保持创建顺序。
// 百分比 = round(票数 / 总票数 × 100)，总票数为 0 时为 0，不做归一化（[1,1,1] → 33,33,33）。
// rank 为排序后的位置（从 1 开始）。
func RankOptions(options []model.Option) ([]dto.OptionResultResponse, int) {
	total := 0
	for _, o := range options {
		total += o.VotesCount
	}

	ranked := make([]dto.OptionResultResponse, len(options))
	for i, o := range options {
		ranked[i] = dto.OptionResultResponse{
			ID:         o.OptionID,
			Name:       o.Name,
			Photo:      o.Photo,
			VotesCount: o.VotesCount,
			Percentage: percentage(o.VotesCount, total),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].VotesCount > ranked[j].VotesCount
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked, total
}

func percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}
