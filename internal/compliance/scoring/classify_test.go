package scoring

import (
	"testing"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func runItems() []entity.ComplianceTemplateItem {
	return []entity.ComplianceTemplateItem{
		{ID: "fire", Code: "C01", ResponseType: entity.ResponseTypeYesNoNA, IsCritical: true, SortOrder: 1},
		{ID: "fridge", Code: "C02", ResponseType: entity.ResponseTypeNumber, MinValue: floatPtr(0), MaxValue: floatPtr(5), SortOrder: 2},
		{ID: "notes", Code: "C03", ResponseType: entity.ResponseTypeText, SortOrder: 3},
		{ID: "photo", Code: "C04", ResponseType: entity.ResponseTypePhotoRequired, SortOrder: 4},
	}
}

func resp(itemID, value string) entity.ComplianceResponse {
	return entity.ComplianceResponse{ItemID: itemID, Value: value}
}

var strict = FailureRules{UnansweredIsFailure: true}

func TestClassifyRun_Green(t *testing.T) {
	got := ClassifyRun(runItems(), []entity.ComplianceResponse{
		resp("fire", "YES"), resp("fridge", "3.5"), resp("notes", "ok"), resp("photo", "s3://bucket/p.jpg"),
	}, strict)

	assert.Equal(t, entity.StatusColorGreen, got.Color)
	assert.Empty(t, got.CriticalFails)
	assert.Empty(t, got.MinorFails)
}

func TestClassifyRun_OneCriticalFailIsRed(t *testing.T) {
	got := ClassifyRun(runItems(), []entity.ComplianceResponse{
		resp("fire", "NO"), resp("fridge", "4"), resp("notes", "ok"), resp("photo", "p.jpg"),
	}, strict)

	assert.Equal(t, entity.StatusColorRed, got.Color)
	require.Len(t, got.CriticalFails, 1)
	assert.Equal(t, "fire", got.CriticalFails[0].Item.ID)
	assert.Equal(t, ReasonAnsweredNo, got.CriticalFails[0].Reason)
	assert.Empty(t, got.MinorFails)
}

func TestClassifyRun_CriticalNaNIsRed(t *testing.T) {
	items := runItems()
	items[1].IsCritical = true
	for _, v := range []string{"NaN", "nan", "+Inf"} {
		got := ClassifyRun(items, []entity.ComplianceResponse{
			resp("fire", "YES"), resp("fridge", v), resp("notes", "ok"), resp("photo", "p.jpg"),
		}, strict)

		assert.Equal(t, entity.StatusColorRed, got.Color, v)
		require.Len(t, got.CriticalFails, 1, v)
		assert.Equal(t, ReasonNotANumber, got.CriticalFails[0].Reason)
	}
}

func TestClassifyRun_MinorOnlyIsAmber(t *testing.T) {
	got := ClassifyRun(runItems(), []entity.ComplianceResponse{
		resp("fire", "YES"), resp("fridge", "9"), resp("notes", "ok"), resp("photo", "p.jpg"),
	}, strict)

	assert.Equal(t, entity.StatusColorAmber, got.Color)
	require.Len(t, got.MinorFails, 1)
	assert.Equal(t, ReasonAboveMaximum, got.MinorFails[0].Reason)
}

func TestClassifyRun_Deterministic(t *testing.T) {
	a := ClassifyRun(runItems(), []entity.ComplianceResponse{resp("fire", "NO"), resp("fridge", "x")}, strict)
	b := ClassifyRun(runItems(), []entity.ComplianceResponse{resp("fridge", "x"), resp("fire", "NO")}, strict)
	assert.Equal(t, a, b)
}

func TestItemFails(t *testing.T) {
	items := runItems()
	tests := []struct {
		name   string
		item   entity.ComplianceTemplateItem
		resp   *entity.ComplianceResponse
		rules  FailureRules
		failed bool
		reason string
	}{
		{"yes passes", items[0], &entity.ComplianceResponse{Value: "YES"}, strict, false, ""},
		{"na passes", items[0], &entity.ComplianceResponse{Value: "NA"}, strict, false, ""},
		{"no fails", items[0], &entity.ComplianceResponse{Value: "no"}, strict, true, ReasonAnsweredNo},
		{"unanswered strict", items[0], nil, strict, true, ReasonUnanswered},
		{"unanswered lenient", items[0], nil, FailureRules{}, false, ""},
		{"number below min", items[1], &entity.ComplianceResponse{Value: "-1"}, strict, true, ReasonBelowMinimum},
		{"number garbage", items[1], &entity.ComplianceResponse{Value: "cold"}, strict, true, ReasonNotANumber},
		{"number nan", items[1], &entity.ComplianceResponse{Value: "NaN"}, strict, true, ReasonNotANumber},
		{"number inf", items[1], &entity.ComplianceResponse{Value: "-Inf"}, strict, true, ReasonNotANumber},
		{"number in range", items[1], &entity.ComplianceResponse{Value: "5"}, strict, false, ""},
		{"text blank lenient", items[2], &entity.ComplianceResponse{Value: "  "}, FailureRules{}, false, ""},
		{"photo missing lenient", items[3], nil, FailureRules{}, true, ReasonMissingPhoto},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failed, reason := ItemFails(tt.item, tt.resp, tt.rules)
			assert.Equal(t, tt.failed, failed)
			assert.Equal(t, tt.reason, reason)
		})
	}
}
