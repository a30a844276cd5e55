package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/cache"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/events"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/policy"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/scoring"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditService 审核服务
type AuditService struct {
	*base
	scores *cache.ScoreCache
}

// CreateAuditReq 创建审核请求
type CreateAuditReq struct {
	TemplateID string           `json:"template_id" binding:"required"`
	Title      string           `json:"title" binding:"required,mintrim=3"`
	Type       entity.AuditType `json:"type" binding:"required"`
	ScopeStart time.Time        `json:"scope_start" binding:"required"`
	ScopeEnd   time.Time        `json:"scope_end" binding:"required"`
}

// UpdateScopeReq 修改审核范围
type UpdateScopeReq struct {
	ScopeStart time.Time `json:"scope_start" binding:"required"`
	ScopeEnd   time.Time `json:"scope_end" binding:"required"`
}

// RecordResponseReq 指标评级
type RecordResponseReq struct {
	IndicatorID string        `json:"indicator_id" binding:"required"`
	Rating      entity.Rating `json:"rating" binding:"required"`
	Comment     *string       `json:"comment"`
}

// CloseAuditReq 关闭审核
type CloseAuditReq struct {
	Reason string `json:"reason"`
}

// ResponseResult 评级结果及其派生的不符合项变化
type ResponseResult struct {
	Response   *entity.IndicatorResponse `json:"response"`
	Finding    *entity.Finding           `json:"finding,omitempty"`
	Superseded []string                  `json:"superseded_finding_ids,omitempty"`

	superseded []entity.Finding
}

func newResponseResult(resp *entity.IndicatorResponse, created *entity.Finding, superseded []entity.Finding) *ResponseResult {
	r := &ResponseResult{Response: resp, Finding: created, superseded: superseded}
	for _, f := range superseded {
		r.Superseded = append(r.Superseded, f.ID)
	}
	return r
}

// Create 创建审核（DRAFT）；外审创建即锁定范围
func (s *AuditService) Create(ctx context.Context, actor Actor, req CreateAuditReq) (*entity.Audit, error) {
	if err := authorize(actor, policy.OpAuditCreate); err != nil {
		return nil, err
	}
	if err := workflow.ValidateAuditType(req.Type); err != nil {
		return nil, err
	}
	if err := workflow.ValidateScope(req.ScopeStart, req.ScopeEnd); err != nil {
		return nil, err
	}

	audit := &entity.Audit{
		ID:          uuid.New().String(),
		TemplateID:  req.TemplateID,
		Title:       strings.TrimSpace(req.Title),
		Type:        req.Type,
		Status:      entity.AuditStatusDraft,
		ScopeStart:  req.ScopeStart,
		ScopeEnd:    req.ScopeEnd,
		ScopeLocked: workflow.ScopeLockedAtCreation(req.Type),
		CreatedBy:   actor.UserID,
	}

	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		n, err := repos.Indicator.CountByTemplate(ctx, req.TemplateID)
		if err != nil {
			return fmt.Errorf("查询审核模板失败: %w", err)
		}
		if n == 0 {
			return apperr.NotFound("审核模板", req.TemplateID)
		}
		if err := repos.Audit.Create(ctx, audit); err != nil {
			return fmt.Errorf("创建审核失败: %w", err)
		}
		content := fmt.Sprintf("创建%s审核: %s", audit.Type, audit.Title)
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityAudit, audit.ID, "create", "", string(audit.Status), content, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("audit created", zap.String("audit_id", audit.ID), zap.String("type", string(audit.Type)), zap.String("operator", actor.UserID))
	s.publishAudit(audit.ID, "", string(audit.Status))
	return audit, nil
}

// Get 查询审核
func (s *AuditService) Get(ctx context.Context, actor Actor, id string) (*entity.Audit, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	audit, err := s.repos.Audit.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "审核", id)
	}
	return audit, nil
}

// List 审核列表
func (s *AuditService) List(ctx context.Context, actor Actor, page, pageSize int, filters map[string]interface{}) ([]entity.Audit, int64, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, 0, err
	}
	return s.repos.Audit.List(ctx, page, pageSize, filters)
}

// UpdateScope 修改审核范围，仅 DRAFT 且未锁定
func (s *AuditService) UpdateScope(ctx context.Context, actor Actor, id string, req UpdateScopeReq) (*entity.Audit, error) {
	if err := authorize(actor, policy.OpAuditUpdateScope); err != nil {
		return nil, err
	}
	if err := workflow.ValidateScope(req.ScopeStart, req.ScopeEnd); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		audit, err := repos.Audit.FindForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "审核", id)
		}
		if err := workflow.CanUpdateScope(audit); err != nil {
			return err
		}
		n, err := repos.Audit.UpdateScope(ctx, id, req.ScopeStart, req.ScopeEnd)
		if err != nil {
			return fmt.Errorf("更新审核范围失败: %w", err)
		}
		if n == 0 {
			return raced("审核")
		}
		content := fmt.Sprintf("审核范围调整为 %s ~ %s", req.ScopeStart.Format("2006-01-02"), req.ScopeEnd.Format("2006-01-02"))
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityAudit, id, "update_scope", "", "", content, actor.UserID)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Audit.FindByID(ctx, id)
}

// Start DRAFT -> IN_PROGRESS，同时锁定范围
func (s *AuditService) Start(ctx context.Context, actor Actor, id string) (*entity.Audit, error) {
	if err := authorize(actor, policy.OpAuditStart); err != nil {
		return nil, err
	}
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		audit, err := repos.Audit.FindForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "审核", id)
		}
		if err := workflow.CanStart(audit); err != nil {
			return err
		}
		return s.advanceToInProgress(ctx, repos, id, actor.UserID, "start")
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, id, entity.AuditStatusDraft, entity.AuditStatusInProgress)
	return s.repos.Audit.FindByID(ctx, id)
}

func (s *AuditService) advanceToInProgress(ctx context.Context, repos *repository.Repositories, id, operatorID, action string) error {
	n, err := repos.Audit.TransitionStatus(ctx, id, entity.AuditStatusDraft, entity.AuditStatusInProgress,
		map[string]interface{}{"scope_locked": true})
	if err != nil {
		return fmt.Errorf("更新审核状态失败: %w", err)
	}
	if n == 0 {
		return raced("审核")
	}
	return repos.ActivityLog.LogActivity(ctx, entity.LogEntityAudit, id, action,
		string(entity.AuditStatusDraft), string(entity.AuditStatusInProgress), "审核开始，范围已锁定", operatorID)
}

// RecordResponse 记录或修正指标评级。
// 草稿状态下首次评级会自动开始审核；评级与不符合项派生在同一事务内完成。
func (s *AuditService) RecordResponse(ctx context.Context, actor Actor, auditID string, req RecordResponseReq) (*ResponseResult, error) {
	if err := authorize(actor, policy.OpAuditRespond); err != nil {
		return nil, err
	}
	if err := workflow.ValidateRating(req.Rating, req.Comment); err != nil {
		return nil, err
	}

	var result *ResponseResult
	started := false
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		audit, err := repos.Audit.FindForUpdate(ctx, auditID)
		if err != nil {
			return lookupErr(err, "审核", auditID)
		}
		if err := workflow.CanRecordResponse(audit); err != nil {
			return err
		}
		if err := checkIndicator(ctx, repos, audit, req.IndicatorID); err != nil {
			return err
		}
		if audit.Status == entity.AuditStatusDraft {
			if err := s.advanceToInProgress(ctx, repos, auditID, actor.UserID, "auto_start"); err != nil {
				return err
			}
			started = true
		}

		saved, err := repos.Response.Upsert(ctx, &entity.IndicatorResponse{
			ID:          uuid.New().String(),
			AuditID:     auditID,
			IndicatorID: req.IndicatorID,
			Rating:      req.Rating,
			Comment:     trimmedPtr(req.Comment),
			RespondedBy: actor.UserID,
		})
		if err != nil {
			return fmt.Errorf("保存评级失败: %w", err)
		}

		finding, superseded, err := deriveFindings(ctx, repos, saved, actor.UserID)
		if err != nil {
			return err
		}
		result = newResponseResult(saved, finding, superseded)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if started {
		s.afterTransition(ctx, auditID, entity.AuditStatusDraft, entity.AuditStatusInProgress)
	}
	s.afterResponse(ctx, auditID, result)
	return result, nil
}

// AddResponseInReview 评审阶段补录未评级指标
func (s *AuditService) AddResponseInReview(ctx context.Context, actor Actor, auditID string, req RecordResponseReq) (*ResponseResult, error) {
	if err := authorize(actor, policy.OpAuditAddInReview); err != nil {
		return nil, err
	}
	if err := workflow.ValidateRating(req.Rating, req.Comment); err != nil {
		return nil, err
	}

	var result *ResponseResult
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		audit, err := repos.Audit.FindForUpdate(ctx, auditID)
		if err != nil {
			return lookupErr(err, "审核", auditID)
		}
		if err := checkIndicator(ctx, repos, audit, req.IndicatorID); err != nil {
			return err
		}
		_, err = repos.Response.FindByAuditIndicator(ctx, auditID, req.IndicatorID)
		alreadyRated := err == nil
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("查询评级失败: %w", err)
		}
		if err := workflow.CanAddInReview(audit, alreadyRated); err != nil {
			return err
		}

		resp := &entity.IndicatorResponse{
			ID:            uuid.New().String(),
			AuditID:       auditID,
			IndicatorID:   req.IndicatorID,
			Rating:        req.Rating,
			Comment:       trimmedPtr(req.Comment),
			RespondedBy:   actor.UserID,
			AddedInReview: true,
		}
		if err := repos.Response.Insert(ctx, resp); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("该指标已有评级，不能重复补录")
			}
			return fmt.Errorf("保存评级失败: %w", err)
		}

		finding, superseded, err := deriveFindings(ctx, repos, resp, actor.UserID)
		if err != nil {
			return err
		}
		content := fmt.Sprintf("评审阶段补录指标评级: %s", resp.Rating)
		if err := repos.ActivityLog.LogActivity(ctx, entity.LogEntityAudit, auditID, "add_in_review", "", "", content, actor.UserID); err != nil {
			return err
		}
		result = newResponseResult(resp, finding, superseded)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterResponse(ctx, auditID, result)
	return result, nil
}

// MarkAssessmentComplete IN_PROGRESS -> IN_REVIEW
func (s *AuditService) MarkAssessmentComplete(ctx context.Context, actor Actor, id string) (*entity.Audit, error) {
	if err := authorize(actor, policy.OpAuditComplete); err != nil {
		return nil, err
	}
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		audit, err := repos.Audit.FindForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "审核", id)
		}
		if err := workflow.CanMarkComplete(audit); err != nil {
			return err
		}
		n, err := repos.Audit.TransitionStatus(ctx, id, entity.AuditStatusInProgress, entity.AuditStatusInReview, nil)
		if err != nil {
			return fmt.Errorf("更新审核状态失败: %w", err)
		}
		if n == 0 {
			return raced("审核")
		}
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityAudit, id, "complete",
			string(entity.AuditStatusInProgress), string(entity.AuditStatusInReview), "现场评估完成，进入评审", actor.UserID)
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, id, entity.AuditStatusInProgress, entity.AuditStatusInReview)
	return s.repos.Audit.FindByID(ctx, id)
}

// Close IN_REVIEW -> CLOSED。存在 OPEN 的严重不符合项时必须给出关闭原因。
func (s *AuditService) Close(ctx context.Context, actor Actor, id string, req CloseAuditReq) (*entity.Audit, error) {
	if err := authorize(actor, policy.OpAuditClose); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)

	var openMajor int64
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		audit, err := repos.Audit.FindForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "审核", id)
		}
		openMajor, err = repos.Finding.CountOpenMajor(ctx, id)
		if err != nil {
			return fmt.Errorf("统计严重不符合项失败: %w", err)
		}
		if err := workflow.CheckClose(audit, openMajor, reason); err != nil {
			return err
		}

		now := time.Now()
		extra := map[string]interface{}{
			"closed_by": actor.UserID,
			"closed_at": now,
		}
		if reason != "" {
			extra["close_reason"] = reason
		}
		n, err := repos.Audit.TransitionStatus(ctx, id, entity.AuditStatusInReview, entity.AuditStatusClosed, extra)
		if err != nil {
			return fmt.Errorf("关闭审核失败: %w", err)
		}
		if n == 0 {
			return raced("审核")
		}
		content := "关闭审核"
		if reason != "" {
			content = fmt.Sprintf("关闭审核（未关闭严重不符合项 %d 项）: %s", openMajor, reason)
		}
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityAudit, id, "close",
			string(entity.AuditStatusInReview), string(entity.AuditStatusClosed), content, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	if openMajor > 0 {
		s.logger.Warn("audit closed with open major findings", zap.String("audit_id", id), zap.Int64("open_major", openMajor))
	}
	s.afterTransition(ctx, id, entity.AuditStatusInReview, entity.AuditStatusClosed)
	return s.repos.Audit.FindByID(ctx, id)
}

// Score 审核得分，优先读取缓存
func (s *AuditService) Score(ctx context.Context, actor Actor, id string) (*scoring.AuditScore, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	if cached, ok, err := s.scores.Get(ctx, id); err != nil {
		s.logger.Warn("score cache read failed", zap.String("audit_id", id), zap.Error(err))
	} else if ok {
		return cached, nil
	}
	version, verErr := s.scores.Version(ctx, id)
	if verErr != nil {
		s.logger.Warn("score cache version read failed", zap.String("audit_id", id), zap.Error(verErr))
	}

	audit, err := s.repos.Audit.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "审核", id)
	}
	indicators, err := s.repos.Indicator.ListByTemplate(ctx, audit.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("查询指标失败: %w", err)
	}
	responses, err := s.repos.Response.ListByAudit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询评级失败: %w", err)
	}

	score := scoring.ComputeAuditScore(padUnrated(indicators, responses))
	// 读库期间应答变更过则不回填，避免旧得分驻留到过期
	if verErr == nil {
		if _, err := s.scores.SetIfUnchanged(ctx, id, version, score); err != nil {
			s.logger.Warn("score cache write failed", zap.String("audit_id", id), zap.Error(err))
		}
	}
	return &score, nil
}

// padUnrated 补齐未评级指标，使 TotalCount 等于模板指标数
func padUnrated(indicators []entity.TemplateIndicator, responses []entity.IndicatorResponse) []entity.IndicatorResponse {
	rated := make(map[string]struct{}, len(responses))
	out := make([]entity.IndicatorResponse, 0, len(indicators))
	for _, r := range responses {
		rated[r.IndicatorID] = struct{}{}
		out = append(out, r)
	}
	for _, ind := range indicators {
		if _, ok := rated[ind.ID]; !ok {
			out = append(out, entity.IndicatorResponse{IndicatorID: ind.ID})
		}
	}
	return out
}

// ListResponses 审核的全部评级
func (s *AuditService) ListResponses(ctx context.Context, actor Actor, id string) ([]entity.IndicatorResponse, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	if _, err := s.repos.Audit.FindByID(ctx, id); err != nil {
		return nil, lookupErr(err, "审核", id)
	}
	return s.repos.Response.ListByAudit(ctx, id)
}

// ListUnrated 尚未评级的指标，评审阶段补录的候选集
func (s *AuditService) ListUnrated(ctx context.Context, actor Actor, id string) ([]entity.TemplateIndicator, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	audit, err := s.repos.Audit.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "审核", id)
	}
	return s.repos.Indicator.ListUnrated(ctx, audit.TemplateID, id)
}

// ListIndicators 审核模板的全部指标
func (s *AuditService) ListIndicators(ctx context.Context, actor Actor, id string) ([]entity.TemplateIndicator, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	audit, err := s.repos.Audit.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "审核", id)
	}
	return s.repos.Indicator.ListByTemplate(ctx, audit.TemplateID)
}

// checkIndicator 指标必须存在且属于审核模板
func checkIndicator(ctx context.Context, repos *repository.Repositories, audit *entity.Audit, indicatorID string) error {
	ind, err := repos.Indicator.FindByID(ctx, indicatorID)
	if err != nil {
		return lookupErr(err, "指标", indicatorID)
	}
	if ind.TemplateID != audit.TemplateID {
		return apperr.NotFound("指标", indicatorID)
	}
	return nil
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *AuditService) afterTransition(ctx context.Context, id string, from, to entity.AuditStatus) {
	recordTransition(entity.LogEntityAudit, string(from), string(to))
	s.logger.Info("audit transitioned", zap.String("audit_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	s.publishAudit(id, string(from), string(to))
}

func (s *AuditService) afterResponse(ctx context.Context, auditID string, result *ResponseResult) {
	if err := s.scores.Invalidate(ctx, auditID); err != nil {
		s.logger.Warn("score cache invalidate failed", zap.String("audit_id", auditID), zap.Error(err))
	}
	afterFindings(s.base, result.Finding, result.superseded)
	s.publish(events.TypeAuditUpdate, map[string]string{
		"audit_id":     auditID,
		"indicator_id": result.Response.IndicatorID,
		"rating":       string(result.Response.Rating),
	})
}

func (s *AuditService) publishAudit(id, from, to string) {
	s.publish(events.TypeAuditUpdate, map[string]string{
		"audit_id": id,
		"from":     from,
		"to":       to,
	})
}
