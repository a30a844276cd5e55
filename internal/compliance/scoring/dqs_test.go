package scoring

import (
	"testing"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/stretchr/testify/assert"
)

func checklist(critical ...bool) []entity.DocumentChecklistItem {
	items := make([]entity.DocumentChecklistItem, len(critical))
	for i, c := range critical {
		items[i] = entity.DocumentChecklistItem{ID: string(rune('a' + i)), IsCritical: c, Section: entity.SectionHygiene}
	}
	return items
}

func answers(as ...entity.ChecklistAnswer) entity.ChecklistAnswers {
	out := entity.ChecklistAnswers{}
	for i, a := range as {
		out[string(rune('a'+i))] = a
	}
	return out
}

func TestComputeDQS_AllNA(t *testing.T) {
	got := ComputeDQS(checklist(true, false, true), answers(entity.AnswerNA, entity.AnswerNA, entity.AnswerNA))
	assert.Equal(t, DQS{Score: 0, CriticalFailures: 0}, got)
}

func TestComputeDQS_AllYesNoneCritical(t *testing.T) {
	got := ComputeDQS(checklist(false, false, false), answers(entity.AnswerYes, entity.AnswerYes, entity.AnswerYes))
	assert.Equal(t, DQS{Score: 100, CriticalFailures: 0}, got)
}

func TestComputeDQS_Mixed(t *testing.T) {
	items := checklist(false, false, true, false)
	got := ComputeDQS(items, answers(entity.AnswerYes, entity.AnswerPartly, entity.AnswerNo, entity.AnswerNA))

	// (1 + 0.5) / 3
	assert.Equal(t, 50, got.Score)
	assert.Equal(t, 1, got.CriticalFailures)
}

func TestComputeDQS_Rounding(t *testing.T) {
	got := ComputeDQS(checklist(false, false, false), answers(entity.AnswerYes, entity.AnswerYes, entity.AnswerNo))
	assert.Equal(t, 67, got.Score)

	got = ComputeDQS(checklist(false, false), answers(entity.AnswerYes, entity.AnswerPartly))
	assert.Equal(t, 75, got.Score)
}

func TestComputeDQS_NonCriticalNoIsNotCriticalFailure(t *testing.T) {
	got := ComputeDQS(checklist(false, true), answers(entity.AnswerNo, entity.AnswerYes))
	assert.Equal(t, 0, got.CriticalFailures)
	assert.Equal(t, 50, got.Score)
}
