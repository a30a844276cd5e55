package workflow

import (
	"net/url"
	"strings"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
)

// ValidEvidenceTransitions 合法的证据请求状态流转；REJECTED 可重新提交
var ValidEvidenceTransitions = map[entity.EvidenceStatus][]entity.EvidenceStatus{
	entity.EvidenceStatusRequested:   {entity.EvidenceStatusSubmitted},
	entity.EvidenceStatusRejected:    {entity.EvidenceStatusSubmitted},
	entity.EvidenceStatusSubmitted:   {entity.EvidenceStatusUnderReview},
	entity.EvidenceStatusUnderReview: {entity.EvidenceStatusAccepted, entity.EvidenceStatusRejected},
}

// CheckEvidenceTransition 校验状态流转
func CheckEvidenceTransition(from, to entity.EvidenceStatus) error {
	for _, s := range ValidEvidenceTransitions[from] {
		if s == to {
			return nil
		}
	}
	return apperr.Conflict("证据请求不允许从 %s 流转到 %s", from, to)
}

// PreStates 能流转到目标状态的全部前置状态
func PreStates(to entity.EvidenceStatus) []entity.EvidenceStatus {
	var out []entity.EvidenceStatus
	for _, from := range []entity.EvidenceStatus{
		entity.EvidenceStatusRequested,
		entity.EvidenceStatusSubmitted,
		entity.EvidenceStatusUnderReview,
		entity.EvidenceStatusRejected,
	} {
		if CheckEvidenceTransition(from, to) == nil {
			out = append(out, from)
		}
	}
	return out
}

// ValidateSubmission 文件名必填，外链必须是合法的 http(s) 地址
func ValidateSubmission(kind entity.SubmissionKind, documentName, link string) error {
	if kind != entity.SubmissionKindUpload && kind != entity.SubmissionKindLink {
		return apperr.Validation("kind", "提交方式不合法: %s", kind)
	}
	if strings.TrimSpace(documentName) == "" {
		return apperr.Validation("document_name", "文件名不能为空")
	}
	if kind == entity.SubmissionKindLink && !IsWellFormedURL(link) {
		return apperr.Validation("url", "链接格式不正确: %s", link)
	}
	return nil
}

// IsWellFormedURL 绝对 http/https 地址且带主机名
func IsWellFormedURL(raw string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidateEvidenceDecision 审核结论只能是ACCEPTED/REJECTED，驳回必须说明原因
func ValidateEvidenceDecision(decision entity.EvidenceStatus, note string) error {
	switch decision {
	case entity.EvidenceStatusAccepted:
		return nil
	case entity.EvidenceStatusRejected:
		if !HasMinText(note, MinCommentLength) {
			return apperr.Validation("review_note", "驳回意见至少需要%d个字符", MinCommentLength)
		}
		return nil
	default:
		return apperr.Validation("decision", "审核结论不合法: %s", decision)
	}
}
