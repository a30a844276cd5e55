// Package scoring holds the side-effect-free scoring rules: rating points,
// the aggregate audit score, the document quality score and the
// classification of recurring compliance checks.
package scoring

import (
	"math"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
)

const (
	maxPoints = 2
	minPoints = -2
)

// Points 评级分值
func Points(r entity.Rating) (int, bool) {
	switch r {
	case entity.RatingConformance:
		return 2, true
	case entity.RatingObservation:
		return 1, true
	case entity.RatingMinorNC:
		return 0, true
	case entity.RatingMajorNC:
		return -2, true
	}
	return 0, false
}

// IsNonConforming MINOR_NC/MAJOR_NC 视为不符合
func IsNonConforming(r entity.Rating) bool {
	return r == entity.RatingMinorNC || r == entity.RatingMajorNC
}

// AuditScore 审核汇总得分
type AuditScore struct {
	Score      int `json:"score"`
	RatedCount int `json:"rated_count"`
	TotalCount int `json:"total_count"`
}

// ComputeAuditScore 计算审核得分。
// 未评级（rating为空或非法）的条目只计入TotalCount，不影响分子和分母。
func ComputeAuditScore(responses []entity.IndicatorResponse) AuditScore {
	result := AuditScore{TotalCount: len(responses)}

	sum := 0
	for _, r := range responses {
		p, ok := Points(r.Rating)
		if !ok {
			continue
		}
		sum += p
		result.RatedCount++
	}
	if result.RatedCount == 0 {
		return result
	}

	lo := minPoints * result.RatedCount
	hi := maxPoints * result.RatedCount
	result.Score = roundPercent(float64(sum-lo), float64(hi-lo))
	return result
}

func roundPercent(num, den float64) int {
	if den <= 0 {
		return 0
	}
	return int(math.Round(100 * num / den))
}
