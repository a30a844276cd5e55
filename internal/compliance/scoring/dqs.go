package scoring

import "github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"

// DQS 文档质量得分
type DQS struct {
	Score            int `json:"score"`
	CriticalFailures int `json:"critical_failures"`
}

// ComputeDQS 计算文档质量得分，NA不计入分母。
// responses 以检查项ID为键；缺失应答的检查项按NA处理，完整性校验由调用方负责。
func ComputeDQS(items []entity.DocumentChecklistItem, responses entity.ChecklistAnswers) DQS {
	var result DQS
	var applicable, yes, partly int

	for _, item := range items {
		answer, ok := responses[item.ID]
		if !ok || answer == entity.AnswerNA {
			continue
		}
		applicable++
		switch answer {
		case entity.AnswerYes:
			yes++
		case entity.AnswerPartly:
			partly++
		case entity.AnswerNo:
			if item.IsCritical {
				result.CriticalFailures++
			}
		}
	}

	result.Score = roundPercent(float64(yes)+0.5*float64(partly), float64(applicable))
	return result
}
