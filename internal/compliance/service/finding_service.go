package service

import (
	"context"
	"fmt"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/events"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/metrics"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/policy"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FindingService 不符合项服务
type FindingService struct {
	*base
}

// RaiseFindingReq 手工登记不符合项（可不属于任何审核）
type RaiseFindingReq struct {
	AuditID     *string                `json:"audit_id"`
	Severity    entity.FindingSeverity `json:"severity" binding:"required"`
	FindingText string                 `json:"finding_text" binding:"required,mintrim=10"`
}

// deriveFindings 评级写入后派生不符合项：先将该指标未关闭的不符合项标记为 superseded，
// 再按新评级创建一条新的不符合项（仅 MINOR_NC/MAJOR_NC）。调用方负责事务。
func deriveFindings(ctx context.Context, repos *repository.Repositories, resp *entity.IndicatorResponse, operatorID string) (*entity.Finding, []entity.Finding, error) {
	stale, err := repos.Finding.ListOpenByIndicator(ctx, resp.AuditID, resp.IndicatorID)
	if err != nil {
		return nil, nil, fmt.Errorf("查询不符合项失败: %w", err)
	}
	var superseded []entity.Finding
	for _, f := range stale {
		n, err := repos.Finding.Close(ctx, f.ID, entity.FindingClosedSuperseded)
		if err != nil {
			return nil, nil, fmt.Errorf("关闭旧不符合项失败: %w", err)
		}
		if n == 0 {
			continue
		}
		content := fmt.Sprintf("指标评级修正为 %s，原不符合项作废", resp.Rating)
		if err := repos.ActivityLog.LogActivity(ctx, entity.LogEntityFinding, f.ID, "supersede",
			string(f.Status), string(entity.FindingStatusClosed), content, operatorID); err != nil {
			return nil, nil, err
		}
		superseded = append(superseded, f)
	}

	severity, ok := entity.SeverityForRating(resp.Rating)
	if !ok {
		return nil, superseded, nil
	}

	finding := &entity.Finding{
		ID:          uuid.New().String(),
		AuditID:     strPtr(resp.AuditID),
		IndicatorID: strPtr(resp.IndicatorID),
		ResponseID:  strPtr(resp.ID),
		Severity:    severity,
		Status:      entity.FindingStatusOpen,
		CreatedBy:   operatorID,
	}
	if resp.Comment != nil {
		finding.FindingText = *resp.Comment
	}
	if err := repos.Finding.Create(ctx, finding); err != nil {
		return nil, nil, fmt.Errorf("创建不符合项失败: %w", err)
	}
	if err := repos.ActivityLog.LogActivity(ctx, entity.LogEntityFinding, finding.ID, "create",
		"", string(finding.Status), fmt.Sprintf("评级 %s 生成不符合项", resp.Rating), operatorID); err != nil {
		return nil, nil, err
	}
	return finding, superseded, nil
}

// afterFindings 事务提交后的指标与事件
func afterFindings(b *base, created *entity.Finding, superseded []entity.Finding) {
	for _, f := range superseded {
		metrics.RecordFinding(string(f.Severity), metrics.FindingSuperseded)
		b.publish(events.TypeFindingUpdate, map[string]string{
			"finding_id": f.ID,
			"status":     string(entity.FindingStatusClosed),
			"reason":     entity.FindingClosedSuperseded,
		})
	}
	if created != nil {
		metrics.RecordFinding(string(created.Severity), metrics.FindingCreated)
		b.logger.Info("finding created", zap.String("finding_id", created.ID), zap.String("severity", string(created.Severity)))
		b.publish(events.TypeFindingUpdate, map[string]string{
			"finding_id": created.ID,
			"status":     string(created.Status),
			"severity":   string(created.Severity),
		})
	}
}

// Raise 手工登记不符合项
func (s *FindingService) Raise(ctx context.Context, actor Actor, req RaiseFindingReq) (*entity.Finding, error) {
	if err := authorize(actor, policy.OpFindingRaise); err != nil {
		return nil, err
	}
	if req.Severity != entity.FindingSeverityMinorNC && req.Severity != entity.FindingSeverityMajorNC {
		return nil, apperr.Validation("severity", "严重程度不合法: %s", req.Severity)
	}
	if !workflow.HasMinText(req.FindingText, workflow.MinCommentLength) {
		return nil, apperr.Validation("finding_text", "不符合项描述至少需要%d个字符", workflow.MinCommentLength)
	}

	finding := &entity.Finding{
		ID:          uuid.New().String(),
		AuditID:     trimmedPtr(req.AuditID),
		Severity:    req.Severity,
		Status:      entity.FindingStatusOpen,
		FindingText: req.FindingText,
		CreatedBy:   actor.UserID,
	}
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		if finding.AuditID != nil {
			audit, err := repos.Audit.FindByID(ctx, *finding.AuditID)
			if err != nil {
				return lookupErr(err, "审核", *finding.AuditID)
			}
			if audit.Status == entity.AuditStatusClosed {
				return apperr.Conflict("审核已关闭，不能登记不符合项")
			}
		}
		if err := repos.Finding.Create(ctx, finding); err != nil {
			return fmt.Errorf("创建不符合项失败: %w", err)
		}
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityFinding, finding.ID, "raise",
			"", string(finding.Status), "手工登记不符合项", actor.UserID)
	})
	if err != nil {
		return nil, err
	}
	afterFindings(s.base, finding, nil)
	return finding, nil
}

// Get 查询不符合项
func (s *FindingService) Get(ctx context.Context, actor Actor, id string) (*entity.Finding, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	f, err := s.repos.Finding.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "不符合项", id)
	}
	return f, nil
}

// List 不符合项列表
func (s *FindingService) List(ctx context.Context, actor Actor, page, pageSize int, filters map[string]interface{}) ([]entity.Finding, int64, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, 0, err
	}
	return s.repos.Finding.List(ctx, page, pageSize, filters)
}

// MarkUnderReview OPEN -> UNDER_REVIEW，仅人工操作
func (s *FindingService) MarkUnderReview(ctx context.Context, actor Actor, id string) (*entity.Finding, error) {
	if err := authorize(actor, policy.OpFindingMarkReview); err != nil {
		return nil, err
	}
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		f, err := repos.Finding.FindByID(ctx, id)
		if err != nil {
			return lookupErr(err, "不符合项", id)
		}
		if f.Status != entity.FindingStatusOpen {
			return apperr.Conflict("只有OPEN的不符合项才能转入评审，当前: %s", f.Status)
		}
		n, err := repos.Finding.TransitionStatus(ctx, id, entity.FindingStatusOpen, entity.FindingStatusUnderReview)
		if err != nil {
			return fmt.Errorf("更新不符合项状态失败: %w", err)
		}
		if n == 0 {
			return raced("不符合项")
		}
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityFinding, id, "mark_under_review",
			string(entity.FindingStatusOpen), string(entity.FindingStatusUnderReview), "", actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	recordTransition(entity.LogEntityFinding, string(entity.FindingStatusOpen), string(entity.FindingStatusUnderReview))
	s.publish(events.TypeFindingUpdate, map[string]string{
		"finding_id": id,
		"status":     string(entity.FindingStatusUnderReview),
	})
	return s.repos.Finding.FindByID(ctx, id)
}
