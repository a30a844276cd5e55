package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/events"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/metrics"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/policy"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/scoring"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentReviewService 文档质量审核服务
type DocumentReviewService struct {
	*base
}

// ReviewDocumentReq 文档审核请求；DocumentType 为空时取证据项上的文档类型
type ReviewDocumentReq struct {
	DocumentType string                  `json:"document_type"`
	Responses    entity.ChecklistAnswers `json:"responses" binding:"required"`
	Decision     entity.ReviewDecision   `json:"decision" binding:"required"`
	Comments     string                  `json:"comments"`
}

// DocumentReviewResult 审核结果；接受但存在关键项失败时 Warning 为 true
type DocumentReviewResult struct {
	Review  *entity.DocumentReview `json:"review"`
	Warning bool                   `json:"warning"`
}

// Review 对证据项做文档质量审核，每个证据项只能审核一次
func (s *DocumentReviewService) Review(ctx context.Context, actor Actor, itemID string, req ReviewDocumentReq) (*DocumentReviewResult, error) {
	if err := authorize(actor, policy.OpDocumentReview); err != nil {
		return nil, err
	}

	answers := make(entity.ChecklistAnswers, len(req.Responses))
	for id, a := range req.Responses {
		answers[id] = entity.ChecklistAnswer(strings.ToUpper(strings.TrimSpace(string(a))))
	}

	var review *entity.DocumentReview
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		item, err := repos.Evidence.FindItemByID(ctx, itemID)
		if err != nil {
			return lookupErr(err, "证据", itemID)
		}
		if item.Review != nil {
			return apperr.Conflict("该证据已完成文档审核")
		}
		er, err := repos.Evidence.FindByID(ctx, item.RequestID)
		if err != nil {
			return lookupErr(err, "证据请求", item.RequestID)
		}
		if err := workflow.CanReviewDocument(er); err != nil {
			return err
		}

		docType := strings.TrimSpace(req.DocumentType)
		if docType == "" {
			docType = item.DocumentType
		}
		if docType == "" {
			return apperr.Validation("document_type", "文档类型不能为空")
		}
		checklist, err := repos.Checklist.ListByDocumentType(ctx, docType)
		if err != nil {
			return fmt.Errorf("查询检查项失败: %w", err)
		}
		if err := workflow.ValidateDocumentReview(checklist, answers, req.Decision, req.Comments); err != nil {
			return err
		}

		dqs := scoring.ComputeDQS(checklist, answers)
		review = &entity.DocumentReview{
			ID:               uuid.New().String(),
			EvidenceItemID:   itemID,
			DocumentType:     docType,
			Responses:        answers,
			Decision:         req.Decision,
			DQSPercent:       dqs.Score,
			CriticalFailures: dqs.CriticalFailures,
			Comments:         strings.TrimSpace(req.Comments),
			ReviewerID:       actor.UserID,
		}
		if err := repos.DocumentReview.Create(ctx, review); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("该证据已完成文档审核")
			}
			return fmt.Errorf("保存文档审核失败: %w", err)
		}
		content := fmt.Sprintf("文档审核 %s，DQS %d%%，关键项失败 %d", review.Decision, review.DQSPercent, review.CriticalFailures)
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityDocumentReview, review.ID, "review",
			"", string(review.Decision), content, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	warning := review.Decision == entity.ReviewDecisionAccept && review.CriticalFailures > 0
	if warning {
		s.logger.Warn("document accepted with critical failures",
			zap.String("evidence_item_id", itemID), zap.Int("critical_failures", review.CriticalFailures))
	}
	metrics.RecordDocumentReview(string(review.Decision), review.DQSPercent)
	s.publish(events.TypeEvidenceUpdate, map[string]string{
		"evidence_item_id": itemID,
		"document_review":  string(review.Decision),
	})
	return &DocumentReviewResult{Review: review, Warning: warning}, nil
}

// Get 证据项的文档审核
func (s *DocumentReviewService) Get(ctx context.Context, actor Actor, itemID string) (*entity.DocumentReview, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	review, err := s.repos.DocumentReview.FindByEvidenceItem(ctx, itemID)
	if err != nil {
		return nil, lookupErr(err, "文档审核", itemID)
	}
	return review, nil
}

// Checklist 文档类型的检查项
func (s *DocumentReviewService) Checklist(ctx context.Context, actor Actor, documentType string) ([]entity.DocumentChecklistItem, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	return s.repos.Checklist.ListByDocumentType(ctx, documentType)
}

// DocumentTypes 已配置检查项的文档类型
func (s *DocumentReviewService) DocumentTypes(ctx context.Context, actor Actor) ([]string, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	return s.repos.Checklist.ListDocumentTypes(ctx)
}
