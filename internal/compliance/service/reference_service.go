package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/importer"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/policy"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReferenceService 参考数据（审核指标、文档检查项、周期检查项）导入
type ReferenceService struct {
	*base
}

// ImportReq 导入参数。
// indicators: TemplateID 为空时生成新的审核模板ID；
// compliance-items: TemplateID 为空时按 TemplateName 查找或创建模板。
type ImportReq struct {
	Kind         importer.Kind    `form:"kind"`
	TemplateID   string           `form:"template_id"`
	TemplateName string           `form:"template_name"`
	ScopeType    entity.ScopeType `form:"scope_type"`
	Frequency    entity.Frequency `form:"frequency"`
}

// ImportResult 导入结果
type ImportResult struct {
	Kind       importer.Kind `json:"kind"`
	TemplateID string        `json:"template_id,omitempty"`
	*importer.Result
}

// Import 从 Excel 导入参考数据；行级错误记入结果，其余行在同一事务内写入
func (s *ReferenceService) Import(ctx context.Context, actor Actor, req ImportReq, f *excelize.File) (*ImportResult, error) {
	if err := authorize(actor, policy.OpReferenceImport); err != nil {
		return nil, err
	}
	kind, err := importer.ParseKind(string(req.Kind))
	if err != nil {
		return nil, apperr.Validation("kind", "%s", err.Error())
	}

	var result *ImportResult
	switch kind {
	case importer.KindIndicators:
		result, err = s.importIndicators(ctx, req, f)
	case importer.KindChecklist:
		result, err = s.importChecklist(ctx, f)
	case importer.KindComplianceItems:
		result, err = s.importComplianceItems(ctx, req, f)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("reference data imported",
		zap.String("kind", string(kind)),
		zap.String("template_id", result.TemplateID),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed),
		zap.String("operator", actor.UserID))
	return result, nil
}

func (s *ReferenceService) importIndicators(ctx context.Context, req ImportReq, f *excelize.File) (*ImportResult, error) {
	templateID := strings.TrimSpace(req.TemplateID)
	if templateID == "" {
		templateID = uuid.New().String()
	}
	items, res, err := importer.ParseIndicators(f, templateID)
	if err != nil {
		return nil, apperr.Validation("file", "解析文件失败: %v", err)
	}
	err = s.inTx(ctx, func(repos *repository.Repositories) error {
		for i := range items {
			if err := repos.Indicator.Upsert(ctx, &items[i]); err != nil {
				return fmt.Errorf("导入指标 %s 失败: %w", items[i].Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ImportResult{Kind: importer.KindIndicators, TemplateID: templateID, Result: res}, nil
}

func (s *ReferenceService) importChecklist(ctx context.Context, f *excelize.File) (*ImportResult, error) {
	items, res, err := importer.ParseChecklist(f)
	if err != nil {
		return nil, apperr.Validation("file", "解析文件失败: %v", err)
	}
	err = s.inTx(ctx, func(repos *repository.Repositories) error {
		for i := range items {
			if err := repos.Checklist.Upsert(ctx, &items[i]); err != nil {
				return fmt.Errorf("导入检查项 %s 失败: %w", items[i].Code, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ImportResult{Kind: importer.KindChecklist, Result: res}, nil
}

func (s *ReferenceService) importComplianceItems(ctx context.Context, req ImportReq, f *excelize.File) (*ImportResult, error) {
	var result *ImportResult
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		tpl, err := s.resolveComplianceTemplate(ctx, repos, req)
		if err != nil {
			return err
		}
		items, res, err := importer.ParseComplianceItems(f, tpl.ID)
		if err != nil {
			return apperr.Validation("file", "解析文件失败: %v", err)
		}
		for i := range items {
			if err := repos.ComplianceTemplate.UpsertItem(ctx, &items[i]); err != nil {
				return fmt.Errorf("导入检查项 %s 失败: %w", items[i].Code, err)
			}
		}
		result = &ImportResult{Kind: importer.KindComplianceItems, TemplateID: tpl.ID, Result: res}
		return nil
	})
	return result, err
}

func (s *ReferenceService) resolveComplianceTemplate(ctx context.Context, repos *repository.Repositories, req ImportReq) (*entity.ComplianceTemplate, error) {
	if id := strings.TrimSpace(req.TemplateID); id != "" {
		tpl, err := repos.ComplianceTemplate.FindByID(ctx, id)
		if err != nil {
			return nil, lookupErr(err, "检查模板", id)
		}
		return tpl, nil
	}

	name := strings.TrimSpace(req.TemplateName)
	if name == "" {
		return nil, apperr.Validation("template_name", "请指定检查模板ID或名称")
	}
	tpl, err := repos.ComplianceTemplate.FindByName(ctx, name)
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("查询检查模板失败: %w", err)
	}

	if !req.ScopeType.Valid() {
		return nil, apperr.Validation("scope_type", "检查范围不合法: %s", req.ScopeType)
	}
	if !req.Frequency.Valid() {
		return nil, apperr.Validation("frequency", "检查频率不合法: %s", req.Frequency)
	}
	tpl = &entity.ComplianceTemplate{
		ID:        uuid.New().String(),
		Name:      name,
		ScopeType: req.ScopeType,
		Frequency: req.Frequency,
	}
	if err := repos.ComplianceTemplate.Create(ctx, tpl); err != nil {
		return nil, fmt.Errorf("创建检查模板失败: %w", err)
	}
	return tpl, nil
}
