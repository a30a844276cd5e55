// Package workflow holds the transition guards of the audit, evidence and
// compliance-run state machines. Guards are pure; services load state, ask
// the guard, then persist under a conditional update.
package workflow

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
)

// MinCommentLength 非符合评级、驳回意见等说明的最小字符数（去除首尾空白后）
const MinCommentLength = 10

// HasMinText 去除首尾空白后是否达到最小字符数
func HasMinText(s string, min int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= min
}

// ScopeLockedAtCreation 外审在创建时即锁定范围
func ScopeLockedAtCreation(t entity.AuditType) bool {
	return t == entity.AuditTypeExternal
}

// ValidateAuditType 校验审核类型
func ValidateAuditType(t entity.AuditType) error {
	if t != entity.AuditTypeInternal && t != entity.AuditTypeExternal {
		return apperr.Validation("type", "审核类型不合法: %s", t)
	}
	return nil
}

// ValidateScope 校验审核时间范围
func ValidateScope(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validation("scope", "审核范围起止日期不能为空")
	}
	if end.Before(start) {
		return apperr.Validation("scope_end", "审核范围结束日期不能早于开始日期")
	}
	return nil
}

// CanUpdateScope 范围只能在DRAFT且未锁定时修改
func CanUpdateScope(a *entity.Audit) error {
	if a.ScopeLocked || a.Status != entity.AuditStatusDraft {
		return apperr.Conflict("审核范围已锁定（状态: %s）", a.Status)
	}
	return nil
}

// CanStart DRAFT -> IN_PROGRESS
func CanStart(a *entity.Audit) error {
	if a.Status != entity.AuditStatusDraft {
		return apperr.Conflict("只有草稿状态的审核才能开始，当前: %s", a.Status)
	}
	return nil
}

// CanRecordResponse 正常评级流程只允许在 DRAFT / IN_PROGRESS
func CanRecordResponse(a *entity.Audit) error {
	switch a.Status {
	case entity.AuditStatusDraft, entity.AuditStatusInProgress:
		return nil
	case entity.AuditStatusInReview:
		return apperr.Conflict("审核已进入评审阶段，只能补录未评级指标")
	default:
		return apperr.Conflict("当前状态 %s 不允许评级", a.Status)
	}
}

// CanAddInReview 评审阶段补录：仅 IN_REVIEW 且该指标尚无应答
func CanAddInReview(a *entity.Audit, alreadyRated bool) error {
	if a.Status != entity.AuditStatusInReview {
		return apperr.Conflict("只有评审中的审核才能补录评级，当前: %s", a.Status)
	}
	if alreadyRated {
		return apperr.Conflict("该指标已有评级，不能重复补录")
	}
	return nil
}

// CanMarkComplete IN_PROGRESS -> IN_REVIEW
func CanMarkComplete(a *entity.Audit) error {
	if a.Status != entity.AuditStatusInProgress {
		return apperr.Conflict("只有进行中的审核才能提交评审，当前: %s", a.Status)
	}
	return nil
}

// CheckClose IN_REVIEW -> CLOSED。存在未关闭的严重不符合项时必须填写关闭原因。
func CheckClose(a *entity.Audit, openMajorFindings int64, reason string) error {
	if a.Status == entity.AuditStatusClosed {
		return apperr.Conflict("审核已关闭")
	}
	if a.Status != entity.AuditStatusInReview {
		return apperr.Conflict("只有评审中的审核才能关闭，当前: %s", a.Status)
	}
	if openMajorFindings > 0 && strings.TrimSpace(reason) == "" {
		return apperr.Validation("close_reason", "存在%d项未关闭的严重不符合项，必须填写关闭原因", openMajorFindings)
	}
	return nil
}

// ValidateRating 校验评级及说明；非CONFORMANCE评级说明至少10个字符
func ValidateRating(rating entity.Rating, comment *string) error {
	if !rating.Valid() {
		return apperr.Validation("rating", "评级不合法: %s", rating)
	}
	if rating == entity.RatingConformance {
		return nil
	}
	if comment == nil || !HasMinText(*comment, MinCommentLength) {
		return apperr.Validation("comment", "评级为%s时说明至少需要%d个字符", rating, MinCommentLength)
	}
	return nil
}
