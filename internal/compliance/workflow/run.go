package workflow

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
)

// ComputePeriod DAILY 取当天；WEEKLY 取所在周的周一至周日
func ComputePeriod(freq entity.Frequency, date time.Time) (start, end time.Time, err error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	switch freq {
	case entity.FrequencyDaily:
		return day, day, nil
	case entity.FrequencyWeekly:
		// time.Sunday == 0
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 6), nil
	default:
		return time.Time{}, time.Time{}, apperr.Validation("frequency", "检查频率不合法: %s", freq)
	}
}

// CanRespond 只有OPEN的检查可以作答
func CanRespond(run *entity.ComplianceRun) error {
	if run.Status != entity.RunStatusOpen {
		return apperr.Conflict("检查状态为 %s，不能作答", run.Status)
	}
	return nil
}

// CanSubmit OPEN -> SUBMITTED
func CanSubmit(run *entity.ComplianceRun) error {
	if run.Status != entity.RunStatusOpen {
		return apperr.Conflict("只有进行中的检查才能提交，当前: %s", run.Status)
	}
	return nil
}

// CanLock OPEN|SUBMITTED -> LOCKED
func CanLock(run *entity.ComplianceRun) error {
	if run.Status == entity.RunStatusLocked {
		return apperr.Conflict("检查已锁定")
	}
	return nil
}

// NormalizeValue 规范化应答值：YES_NO_NA 转大写，其余去除首尾空白
func NormalizeValue(item *entity.ComplianceTemplateItem, value string) string {
	value = strings.TrimSpace(value)
	if item.ResponseType == entity.ResponseTypeYesNoNA {
		return strings.ToUpper(value)
	}
	return value
}

// ValidateResponseValue 按应答类型校验；空值表示清空应答，总是允许
func ValidateResponseValue(item *entity.ComplianceTemplateItem, value string) error {
	if value == "" {
		return nil
	}
	switch item.ResponseType {
	case entity.ResponseTypeYesNoNA:
		switch value {
		case "YES", "NO", "NA":
			return nil
		}
		return apperr.Validation("value", "检查项 %s 只接受 YES/NO/NA", item.Code)
	case entity.ResponseTypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return apperr.Validation("value", "检查项 %s 需要数值", item.Code)
		}
	}
	return nil
}

// CheckActionTransition 整改行动状态流转
func CheckActionTransition(from, to entity.ActionStatus) error {
	for _, s := range entity.ValidActionTransitions[from] {
		if s == to {
			return nil
		}
	}
	return apperr.Conflict("整改行动不允许从 %s 流转到 %s", from, to)
}
