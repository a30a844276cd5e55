package scoring

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
)

// FailureRules 周期检查失败判定规则（来自配置）
type FailureRules struct {
	UnansweredIsFailure bool
}

// 失败原因
const (
	ReasonUnanswered   = "unanswered"
	ReasonAnsweredNo   = "answered_no"
	ReasonNotANumber   = "not_a_number"
	ReasonBelowMinimum = "below_minimum"
	ReasonAboveMaximum = "above_maximum"
	ReasonMissingPhoto = "missing_photo"
)

// ItemFailure 单个检查项的失败信息
type ItemFailure struct {
	Item   entity.ComplianceTemplateItem
	Value  string
	Reason string
}

// RunClassification 周期检查分类结果
type RunClassification struct {
	Color         entity.StatusColor
	CriticalFails []ItemFailure
	MinorFails    []ItemFailure
}

// ItemFails 判断单个检查项是否失败
func ItemFails(item entity.ComplianceTemplateItem, resp *entity.ComplianceResponse, rules FailureRules) (bool, string) {
	value := ""
	if resp != nil {
		value = strings.TrimSpace(resp.Value)
	}

	if value == "" {
		if item.ResponseType == entity.ResponseTypePhotoRequired {
			return true, ReasonMissingPhoto
		}
		if rules.UnansweredIsFailure {
			return true, ReasonUnanswered
		}
		return false, ""
	}

	switch item.ResponseType {
	case entity.ResponseTypeYesNoNA:
		if strings.EqualFold(value, "NO") {
			return true, ReasonAnsweredNo
		}
	case entity.ResponseTypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return true, ReasonNotANumber
		}
		if item.MinValue != nil && n < *item.MinValue {
			return true, ReasonBelowMinimum
		}
		if item.MaxValue != nil && n > *item.MaxValue {
			return true, ReasonAboveMaximum
		}
	}
	return false, ""
}

// ClassifyRun 对整次周期检查分类：有关键项失败为red，否则有普通项失败为amber，否则green。
// 检查项按 sort_order、code 排序，结果与应答的提供顺序无关。
func ClassifyRun(items []entity.ComplianceTemplateItem, responses []entity.ComplianceResponse, rules FailureRules) RunClassification {
	byItem := make(map[string]*entity.ComplianceResponse, len(responses))
	for i := range responses {
		byItem[responses[i].ItemID] = &responses[i]
	}

	ordered := make([]entity.ComplianceTemplateItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].Code < ordered[j].Code
	})

	var result RunClassification
	for _, item := range ordered {
		resp := byItem[item.ID]
		failed, reason := ItemFails(item, resp, rules)
		if !failed {
			continue
		}
		f := ItemFailure{Item: item, Reason: reason}
		if resp != nil {
			f.Value = resp.Value
		}
		if item.IsCritical {
			result.CriticalFails = append(result.CriticalFails, f)
		} else {
			result.MinorFails = append(result.MinorFails, f)
		}
	}

	switch {
	case len(result.CriticalFails) > 0:
		result.Color = entity.StatusColorRed
	case len(result.MinorFails) > 0:
		result.Color = entity.StatusColorAmber
	default:
		result.Color = entity.StatusColorGreen
	}
	return result
}
