package service

import (
	"context"
	"fmt"
	"strings"
	"time"

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

const dateLayout = "2006-01-02"

// ComplianceService 周期检查服务
type ComplianceService struct {
	*base
	opts Options
}

// CreateRunReq 创建周期检查；Date 为空时取当天（UTC）
type CreateRunReq struct {
	TemplateID    string `json:"template_id" binding:"required"`
	ScopeEntityID string `json:"scope_entity_id" binding:"required"`
	Date          string `json:"date"`
}

// RunResponseInput 单个检查项应答
type RunResponseInput struct {
	ItemID string `json:"item_id" binding:"required"`
	Value  string `json:"value"`
	Note   string `json:"note"`
}

// RespondReq 批量作答
type RespondReq struct {
	Responses []RunResponseInput `json:"responses" binding:"required,min=1,dive"`
}

// SubmitResult 提交结果
type SubmitResult struct {
	Run            *entity.ComplianceRun     `json:"run"`
	StatusColor    entity.StatusColor        `json:"status_color"`
	ActionsCreated int                       `json:"actions_created"`
	Actions        []entity.ComplianceAction `json:"actions"`
}

// UpdateActionReq 整改行动状态流转
type UpdateActionReq struct {
	Status entity.ActionStatus `json:"status" binding:"required"`
}

// CreateRun 按 (范围, 频率, 周期) 查找或创建检查。
// 返回的 bool 表示是否新建；周期内已锁定或属于其他模板的检查返回 Conflict。
func (s *ComplianceService) CreateRun(ctx context.Context, actor Actor, req CreateRunReq) (*entity.ComplianceRun, bool, error) {
	if err := authorize(actor, policy.OpRunCreate); err != nil {
		return nil, false, err
	}
	date := time.Now().UTC()
	if d := strings.TrimSpace(req.Date); d != "" {
		parsed, err := time.Parse(dateLayout, d)
		if err != nil {
			return nil, false, apperr.Validation("date", "日期格式应为 YYYY-MM-DD: %s", d)
		}
		date = parsed
	}

	tpl, err := s.repos.ComplianceTemplate.FindByID(ctx, req.TemplateID)
	if err != nil {
		return nil, false, lookupErr(err, "检查模板", req.TemplateID)
	}
	start, end, err := workflow.ComputePeriod(tpl.Frequency, date)
	if err != nil {
		return nil, false, err
	}

	run := &entity.ComplianceRun{
		ID:            uuid.New().String(),
		TemplateID:    tpl.ID,
		ScopeType:     tpl.ScopeType,
		ScopeEntityID: strings.TrimSpace(req.ScopeEntityID),
		Frequency:     tpl.Frequency,
		PeriodStart:   start,
		PeriodEnd:     end,
		Status:        entity.RunStatusOpen,
		CreatedBy:     actor.UserID,
	}

	var result *entity.ComplianceRun
	created := false
	err = s.inTx(ctx, func(repos *repository.Repositories) error {
		inserted, err := repos.ComplianceRun.InsertIfAbsent(ctx, run)
		if err != nil {
			return fmt.Errorf("创建周期检查失败: %w", err)
		}
		if inserted {
			created = true
			result = run
			content := fmt.Sprintf("创建%s检查 %s ~ %s", run.Frequency, start.Format(dateLayout), end.Format(dateLayout))
			return repos.ActivityLog.LogActivity(ctx, entity.LogEntityComplianceRun, run.ID, "create",
				"", string(run.Status), content, actor.UserID)
		}

		existing, err := repos.ComplianceRun.FindByPeriod(ctx, run.ScopeType, run.ScopeEntityID, run.Frequency, start)
		if err != nil {
			return lookupErr(err, "周期检查", run.ScopeEntityID)
		}
		if existing.Status == entity.RunStatusLocked {
			return apperr.Conflict("该周期的检查已锁定: %s", existing.ID)
		}
		// 周期键不含模板，同范围同频率的另一模板不能复用该检查
		if existing.TemplateID != tpl.ID {
			return apperr.Conflict("该周期已存在其他模板的检查: %s", existing.ID)
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("compliance run created", zap.String("run_id", result.ID),
			zap.String("scope_entity_id", result.ScopeEntityID), zap.String("frequency", string(result.Frequency)))
		s.publishRun(result.ID, "", string(result.Status), "")
	}
	return result, created, nil
}

// Get 查询检查及应答
func (s *ComplianceService) Get(ctx context.Context, actor Actor, id string) (*entity.ComplianceRun, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	run, err := s.repos.ComplianceRun.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "周期检查", id)
	}
	return run, nil
}

// List 检查列表
func (s *ComplianceService) List(ctx context.Context, actor Actor, page, pageSize int, filters map[string]interface{}) ([]entity.ComplianceRun, int64, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, 0, err
	}
	return s.repos.ComplianceRun.List(ctx, page, pageSize, filters)
}

// Respond 批量作答，仅 OPEN 状态；同一检查项以最后一次为准
func (s *ComplianceService) Respond(ctx context.Context, actor Actor, runID string, req RespondReq) ([]entity.ComplianceResponse, error) {
	if err := authorize(actor, policy.OpRunRespond); err != nil {
		return nil, err
	}
	if len(req.Responses) == 0 {
		return nil, apperr.Validation("responses", "应答不能为空")
	}

	var saved []entity.ComplianceResponse
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		run, err := repos.ComplianceRun.FindForUpdate(ctx, runID)
		if err != nil {
			return lookupErr(err, "周期检查", runID)
		}
		if err := workflow.CanRespond(run); err != nil {
			return err
		}
		for _, in := range req.Responses {
			item, err := repos.ComplianceTemplate.FindItemByID(ctx, in.ItemID)
			if err != nil {
				return lookupErr(err, "检查项", in.ItemID)
			}
			if item.TemplateID != run.TemplateID {
				return apperr.NotFound("检查项", in.ItemID)
			}
			value := workflow.NormalizeValue(item, in.Value)
			if err := workflow.ValidateResponseValue(item, value); err != nil {
				return err
			}
			resp, err := repos.ComplianceResponse.Upsert(ctx, &entity.ComplianceResponse{
				ID:          uuid.New().String(),
				RunID:       runID,
				ItemID:      item.ID,
				Value:       value,
				Note:        strings.TrimSpace(in.Note),
				RespondedBy: actor.UserID,
			})
			if err != nil {
				return fmt.Errorf("保存应答失败: %w", err)
			}
			saved = append(saved, *resp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Submit OPEN -> SUBMITTED。计算状态颜色，每个失败的关键项生成一条 HIGH 整改行动。
func (s *ComplianceService) Submit(ctx context.Context, actor Actor, runID string) (*SubmitResult, error) {
	if err := authorize(actor, policy.OpRunSubmit); err != nil {
		return nil, err
	}

	rules := scoring.FailureRules{UnansweredIsFailure: s.opts.UnansweredIsFailure}
	var (
		classification scoring.RunClassification
		actions        []entity.ComplianceAction
	)
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		run, err := repos.ComplianceRun.FindForUpdate(ctx, runID)
		if err != nil {
			return lookupErr(err, "周期检查", runID)
		}
		if err := workflow.CanSubmit(run); err != nil {
			return err
		}
		tpl, err := repos.ComplianceTemplate.FindByID(ctx, run.TemplateID)
		if err != nil {
			return lookupErr(err, "检查模板", run.TemplateID)
		}
		responses, err := repos.ComplianceResponse.ListByRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("查询应答失败: %w", err)
		}
		classification = scoring.ClassifyRun(tpl.Items, responses, rules)

		now := time.Now()
		n, err := repos.ComplianceRun.Transition(ctx, runID, []entity.RunStatus{entity.RunStatusOpen}, entity.RunStatusSubmitted,
			map[string]interface{}{
				"status_color": classification.Color,
				"submitted_by": actor.UserID,
				"submitted_at": now,
			})
		if err != nil {
			return fmt.Errorf("提交周期检查失败: %w", err)
		}
		if n == 0 {
			return raced("周期检查")
		}

		actions = buildActions(runID, classification.CriticalFails, now.Add(s.opts.ActionSLA))
		if err := repos.ComplianceAction.CreateBatch(ctx, actions); err != nil {
			return fmt.Errorf("创建整改行动失败: %w", err)
		}
		content := fmt.Sprintf("提交检查，结果 %s，关键项失败 %d，普通项失败 %d",
			classification.Color, len(classification.CriticalFails), len(classification.MinorFails))
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityComplianceRun, runID, "submit",
			string(entity.RunStatusOpen), string(entity.RunStatusSubmitted), content, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordRunSubmitted(string(classification.Color), len(actions))
	recordTransition(entity.LogEntityComplianceRun, string(entity.RunStatusOpen), string(entity.RunStatusSubmitted))
	s.logger.Info("compliance run submitted", zap.String("run_id", runID),
		zap.String("status_color", string(classification.Color)), zap.Int("actions", len(actions)))
	s.publishRun(runID, string(entity.RunStatusOpen), string(entity.RunStatusSubmitted), string(classification.Color))
	for _, a := range actions {
		s.publish(events.TypeActionUpdate, map[string]string{
			"action_id": a.ID,
			"run_id":    runID,
			"status":    string(a.Status),
		})
	}

	run, err := s.repos.ComplianceRun.FindByID(ctx, runID)
	if err != nil {
		return nil, lookupErr(err, "周期检查", runID)
	}
	return &SubmitResult{
		Run:            run,
		StatusColor:    classification.Color,
		ActionsCreated: len(actions),
		Actions:        actions,
	}, nil
}

func buildActions(runID string, fails []scoring.ItemFailure, due time.Time) []entity.ComplianceAction {
	actions := make([]entity.ComplianceAction, 0, len(fails))
	for _, f := range fails {
		desc := fmt.Sprintf("关键项 %s 未通过（%s）: %s", f.Item.Code, f.Reason, f.Item.Text)
		if f.Value != "" {
			desc += fmt.Sprintf("，应答: %s", f.Value)
		}
		actions = append(actions, entity.ComplianceAction{
			ID:          uuid.New().String(),
			RunID:       runID,
			ItemID:      f.Item.ID,
			Severity:    entity.ActionSeverityHigh,
			Status:      entity.ActionStatusOpen,
			DueAt:       due,
			Description: desc,
		})
	}
	return actions
}

// Lock OPEN|SUBMITTED -> LOCKED，仅公司管理员
func (s *ComplianceService) Lock(ctx context.Context, actor Actor, runID string) (*entity.ComplianceRun, error) {
	if err := authorize(actor, policy.OpRunLock); err != nil {
		return nil, err
	}
	var from entity.RunStatus
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		run, err := repos.ComplianceRun.FindForUpdate(ctx, runID)
		if err != nil {
			return lookupErr(err, "周期检查", runID)
		}
		if err := workflow.CanLock(run); err != nil {
			return err
		}
		from = run.Status
		n, err := repos.ComplianceRun.Transition(ctx, runID, []entity.RunStatus{entity.RunStatusOpen, entity.RunStatusSubmitted},
			entity.RunStatusLocked, map[string]interface{}{"locked_at": time.Now()})
		if err != nil {
			return fmt.Errorf("锁定周期检查失败: %w", err)
		}
		if n == 0 {
			return raced("周期检查")
		}
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityComplianceRun, runID, "lock",
			string(from), string(entity.RunStatusLocked), "", actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	recordTransition(entity.LogEntityComplianceRun, string(from), string(entity.RunStatusLocked))
	s.publishRun(runID, string(from), string(entity.RunStatusLocked), "")
	return s.repos.ComplianceRun.FindByID(ctx, runID)
}

// ListActions 整改行动列表
func (s *ComplianceService) ListActions(ctx context.Context, actor Actor, page, pageSize int, filters map[string]interface{}) ([]entity.ComplianceAction, int64, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, 0, err
	}
	return s.repos.ComplianceAction.List(ctx, page, pageSize, filters)
}

// UpdateAction 整改行动 OPEN -> IN_PROGRESS -> CLOSED
func (s *ComplianceService) UpdateAction(ctx context.Context, actor Actor, id string, req UpdateActionReq) (*entity.ComplianceAction, error) {
	if err := authorize(actor, policy.OpActionUpdate); err != nil {
		return nil, err
	}
	var from entity.ActionStatus
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		action, err := repos.ComplianceAction.FindByID(ctx, id)
		if err != nil {
			return lookupErr(err, "整改行动", id)
		}
		if err := workflow.CheckActionTransition(action.Status, req.Status); err != nil {
			return err
		}
		from = action.Status
		var extra map[string]interface{}
		if req.Status == entity.ActionStatusClosed {
			extra = map[string]interface{}{
				"closed_by": actor.UserID,
				"closed_at": time.Now(),
			}
		}
		n, err := repos.ComplianceAction.Transition(ctx, id, from, req.Status, extra)
		if err != nil {
			return fmt.Errorf("更新整改行动失败: %w", err)
		}
		if n == 0 {
			return raced("整改行动")
		}
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityAction, id, "update_status",
			string(from), string(req.Status), "", actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	recordTransition(entity.LogEntityAction, string(from), string(req.Status))
	s.publish(events.TypeActionUpdate, map[string]string{
		"action_id": id,
		"from":      string(from),
		"status":    string(req.Status),
	})
	return s.repos.ComplianceAction.FindByID(ctx, id)
}

// Templates 周期检查模板列表
func (s *ComplianceService) Templates(ctx context.Context, actor Actor) ([]entity.ComplianceTemplate, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	return s.repos.ComplianceTemplate.List(ctx)
}

// Template 周期检查模板及检查项
func (s *ComplianceService) Template(ctx context.Context, actor Actor, id string) (*entity.ComplianceTemplate, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	tpl, err := s.repos.ComplianceTemplate.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "检查模板", id)
	}
	return tpl, nil
}

func (s *ComplianceService) publishRun(id, from, to, color string) {
	payload := map[string]string{
		"run_id": id,
		"from":   from,
		"to":     to,
	}
	if color != "" {
		payload["status_color"] = color
	}
	s.publish(events.TypeRunUpdate, payload)
}
