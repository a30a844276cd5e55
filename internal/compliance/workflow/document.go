package workflow

import (
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
)

// ValidateDocumentReview 每个检查项都必须有合法应答，且不能包含模板外的检查项；
// REJECT 结论必须附至少10个字符的意见。
func ValidateDocumentReview(items []entity.DocumentChecklistItem, answers entity.ChecklistAnswers, decision entity.ReviewDecision, comments string) error {
	if decision != entity.ReviewDecisionAccept && decision != entity.ReviewDecisionReject {
		return apperr.Validation("decision", "审核结论不合法: %s", decision)
	}
	if len(items) == 0 {
		return apperr.Validation("document_type", "该文档类型没有配置检查项")
	}

	known := make(map[string]struct{}, len(items))
	for _, item := range items {
		known[item.ID] = struct{}{}
		answer, ok := answers[item.ID]
		if !ok {
			return apperr.Validation("responses", "检查项 %s 缺少应答", item.Code)
		}
		if !answer.Valid() {
			return apperr.Validation("responses", "检查项 %s 的应答不合法: %s", item.Code, answer)
		}
	}
	for id := range answers {
		if _, ok := known[id]; !ok {
			return apperr.Validation("responses", "未知检查项: %s", id)
		}
	}

	if decision == entity.ReviewDecisionReject && !HasMinText(comments, MinCommentLength) {
		return apperr.Validation("comments", "驳回意见至少需要%d个字符", MinCommentLength)
	}
	return nil
}

// CanReviewDocument 证据请求处于 SUBMITTED / UNDER_REVIEW 时才能做文档审核
func CanReviewDocument(req *entity.EvidenceRequest) error {
	if req.Status != entity.EvidenceStatusSubmitted && req.Status != entity.EvidenceStatusUnderReview {
		return apperr.Conflict("证据请求状态为 %s，不能进行文档审核", req.Status)
	}
	return nil
}
