package scoring

import (
	"math/rand"
	"testing"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responses(ratings ...entity.Rating) []entity.IndicatorResponse {
	out := make([]entity.IndicatorResponse, len(ratings))
	for i, r := range ratings {
		out[i] = entity.IndicatorResponse{IndicatorID: string(rune('a' + i)), Rating: r}
	}
	return out
}

func TestPoints(t *testing.T) {
	cases := map[entity.Rating]int{
		entity.RatingConformance: 2,
		entity.RatingObservation: 1,
		entity.RatingMinorNC:     0,
		entity.RatingMajorNC:     -2,
	}
	for rating, want := range cases {
		got, ok := Points(rating)
		require.True(t, ok, rating)
		assert.Equal(t, want, got, rating)
	}

	_, ok := Points("")
	assert.False(t, ok)
}

func TestIsNonConforming(t *testing.T) {
	assert.True(t, IsNonConforming(entity.RatingMinorNC))
	assert.True(t, IsNonConforming(entity.RatingMajorNC))
	assert.False(t, IsNonConforming(entity.RatingConformance))
	assert.False(t, IsNonConforming(entity.RatingObservation))
}

func TestComputeAuditScore(t *testing.T) {
	tests := []struct {
		name    string
		ratings []entity.Rating
		want    AuditScore
	}{
		{"empty", nil, AuditScore{Score: 0, RatedCount: 0, TotalCount: 0}},
		{"all conformance", []entity.Rating{entity.RatingConformance, entity.RatingConformance}, AuditScore{100, 2, 2}},
		{"all major", []entity.Rating{entity.RatingMajorNC, entity.RatingMajorNC}, AuditScore{0, 2, 2}},
		{"single observation", []entity.Rating{entity.RatingObservation}, AuditScore{75, 1, 1}},
		{"single minor", []entity.Rating{entity.RatingMinorNC}, AuditScore{50, 1, 1}},
		{"conformance and minor", []entity.Rating{entity.RatingConformance, entity.RatingMinorNC}, AuditScore{75, 2, 2}},
		{"unrated excluded", []entity.Rating{entity.RatingConformance, "", ""}, AuditScore{100, 1, 3}},
		{"only unrated", []entity.Rating{"", ""}, AuditScore{0, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeAuditScore(responses(tt.ratings...)))
		})
	}
}

func TestComputeAuditScore_OrderInvariant(t *testing.T) {
	in := responses(
		entity.RatingConformance, entity.RatingMajorNC, entity.RatingObservation,
		entity.RatingMinorNC, "", entity.RatingConformance, entity.RatingObservation,
	)
	want := ComputeAuditScore(in)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]entity.IndicatorResponse, len(in))
		copy(shuffled, in)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, ComputeAuditScore(shuffled))
	}
}

func TestComputeAuditScore_UnratedNeverChangesScore(t *testing.T) {
	rated := responses(entity.RatingConformance, entity.RatingMinorNC, entity.RatingMajorNC)
	base := ComputeAuditScore(rated)

	withUnrated := append(rated, entity.IndicatorResponse{IndicatorID: "x"}, entity.IndicatorResponse{IndicatorID: "y"})
	got := ComputeAuditScore(withUnrated)

	assert.Equal(t, base.Score, got.Score)
	assert.Equal(t, base.RatedCount, got.RatedCount)
	assert.Equal(t, 5, got.TotalCount)
}
