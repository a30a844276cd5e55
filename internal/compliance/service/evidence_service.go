package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

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

const downloadURLExpiry = 15 * time.Minute

// EvidenceStore 证据文件存储，由 storage.EvidenceStore 实现
type EvidenceStore interface {
	Put(ctx context.Context, requestID, fileName string, reader io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key, fileName string, expiry time.Duration) (string, error)
}

// EvidenceService 证据请求服务
type EvidenceService struct {
	*base
	store EvidenceStore
}

// RequestEvidenceReq 发起证据请求
type RequestEvidenceReq struct {
	AuditID      *string             `json:"audit_id"`
	FindingID    *string             `json:"finding_id"`
	EvidenceType entity.EvidenceType `json:"evidence_type" binding:"required"`
	Description  string              `json:"description" binding:"required,mintrim=1"`
	DueDate      *time.Time          `json:"due_date"`
}

// SubmitEvidenceReq 提交证据（上传或外链）
type SubmitEvidenceReq struct {
	Kind         entity.SubmissionKind `json:"kind" form:"kind" binding:"required"`
	DocumentName string                `json:"document_name" form:"document_name"`
	URL          string                `json:"url" form:"url"`
	DocumentType string                `json:"document_type" form:"document_type"`
	Note         string                `json:"note" form:"note"`
}

// Upload 随提交上传的文件
type Upload struct {
	FileName    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// DecideEvidenceReq 审核结论
type DecideEvidenceReq struct {
	Decision entity.EvidenceStatus `json:"decision" binding:"required"`
	Note     string                `json:"note"`
}

// Request 发起证据请求；关联不符合项时回写 evidence_request_id
func (s *EvidenceService) Request(ctx context.Context, actor Actor, req RequestEvidenceReq) (*entity.EvidenceRequest, error) {
	if err := authorize(actor, policy.OpEvidenceRequest); err != nil {
		return nil, err
	}
	if !req.EvidenceType.Valid() {
		return nil, apperr.Validation("evidence_type", "证据类型不合法: %s", req.EvidenceType)
	}

	er := &entity.EvidenceRequest{
		ID:           uuid.New().String(),
		AuditID:      trimmedPtr(req.AuditID),
		FindingID:    trimmedPtr(req.FindingID),
		Status:       entity.EvidenceStatusRequested,
		EvidenceType: req.EvidenceType,
		Description:  strings.TrimSpace(req.Description),
		DueDate:      req.DueDate,
		RequestedBy:  actor.UserID,
	}
	if er.AuditID == nil && er.FindingID == nil {
		return nil, apperr.Validation("audit_id", "证据请求必须关联审核或不符合项")
	}

	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		if er.FindingID != nil {
			f, err := repos.Finding.FindByID(ctx, *er.FindingID)
			if err != nil {
				return lookupErr(err, "不符合项", *er.FindingID)
			}
			if f.Status == entity.FindingStatusClosed {
				return apperr.Conflict("不符合项已关闭，不能再请求证据")
			}
			if er.AuditID == nil {
				er.AuditID = f.AuditID
			}
		}
		if er.AuditID != nil {
			if _, err := repos.Audit.FindByID(ctx, *er.AuditID); err != nil {
				return lookupErr(err, "审核", *er.AuditID)
			}
		}
		if err := repos.Evidence.Create(ctx, er); err != nil {
			return fmt.Errorf("创建证据请求失败: %w", err)
		}
		if er.FindingID != nil {
			if err := repos.Finding.LinkEvidenceRequest(ctx, *er.FindingID, er.ID); err != nil {
				return fmt.Errorf("关联不符合项失败: %w", err)
			}
		}
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityEvidenceRequest, er.ID, "request",
			"", string(er.Status), er.Description, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("evidence requested", zap.String("request_id", er.ID), zap.String("operator", actor.UserID))
	s.publishEvidence(er.ID, "", string(er.Status))
	return er, nil
}

// Get 查询证据请求及提交记录
func (s *EvidenceService) Get(ctx context.Context, actor Actor, id string) (*entity.EvidenceRequest, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, err
	}
	er, err := s.repos.Evidence.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "证据请求", id)
	}
	return er, nil
}

// List 证据请求列表
func (s *EvidenceService) List(ctx context.Context, actor Actor, page, pageSize int, filters map[string]interface{}) ([]entity.EvidenceRequest, int64, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return nil, 0, err
	}
	return s.repos.Evidence.List(ctx, page, pageSize, filters)
}

// Submit REQUESTED|REJECTED -> SUBMITTED。上传方式需要 file，外链方式需要合法 URL。
func (s *EvidenceService) Submit(ctx context.Context, actor Actor, id string, req SubmitEvidenceReq, file *Upload) (*entity.EvidenceItem, error) {
	if err := authorize(actor, policy.OpEvidenceSubmit); err != nil {
		return nil, err
	}
	if err := workflow.ValidateSubmission(req.Kind, req.DocumentName, req.URL); err != nil {
		return nil, err
	}
	if req.Kind == entity.SubmissionKindUpload && file == nil {
		return nil, apperr.Validation("file", "上传方式必须附带文件")
	}

	// 先检查状态，避免为不可提交的请求上传文件
	current, err := s.repos.Evidence.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "证据请求", id)
	}
	if err := workflow.CheckEvidenceTransition(current.Status, entity.EvidenceStatusSubmitted); err != nil {
		return nil, err
	}

	item := &entity.EvidenceItem{
		ID:           uuid.New().String(),
		RequestID:    id,
		Kind:         req.Kind,
		DocumentName: strings.TrimSpace(req.DocumentName),
		DocumentType: strings.TrimSpace(req.DocumentType),
		Note:         req.Note,
		UploadedBy:   actor.UserID,
	}
	if req.Kind == entity.SubmissionKindLink {
		item.URL = strings.TrimSpace(req.URL)
	} else {
		key, err := s.store.Put(ctx, id, file.FileName, file.Reader, file.Size, file.ContentType)
		if err != nil {
			return nil, fmt.Errorf("上传证据文件失败: %w", err)
		}
		item.StorageKey = key
	}

	var from entity.EvidenceStatus
	err = s.inTx(ctx, func(repos *repository.Repositories) error {
		er, err := repos.Evidence.FindByID(ctx, id)
		if err != nil {
			return lookupErr(err, "证据请求", id)
		}
		from = er.Status
		if err := workflow.CheckEvidenceTransition(er.Status, entity.EvidenceStatusSubmitted); err != nil {
			return err
		}
		if err := repos.Evidence.CreateItem(ctx, item); err != nil {
			return fmt.Errorf("保存证据失败: %w", err)
		}
		n, err := repos.Evidence.Transition(ctx, id, workflow.PreStates(entity.EvidenceStatusSubmitted), entity.EvidenceStatusSubmitted, nil)
		if err != nil {
			return fmt.Errorf("更新证据请求状态失败: %w", err)
		}
		if n == 0 {
			return raced("证据请求")
		}
		content := fmt.Sprintf("提交证据(%s): %s", item.Kind, item.DocumentName)
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityEvidenceRequest, id, "submit",
			string(er.Status), string(entity.EvidenceStatusSubmitted), content, actor.UserID)
	})
	if err != nil {
		if item.StorageKey != "" {
			s.removeOrphan(ctx, item.StorageKey)
		}
		return nil, err
	}

	s.afterTransition(id, from, entity.EvidenceStatusSubmitted)
	return item, nil
}

// StartReview SUBMITTED -> UNDER_REVIEW
func (s *EvidenceService) StartReview(ctx context.Context, actor Actor, id string) (*entity.EvidenceRequest, error) {
	if err := authorize(actor, policy.OpEvidenceStartReview); err != nil {
		return nil, err
	}
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		er, err := repos.Evidence.FindByID(ctx, id)
		if err != nil {
			return lookupErr(err, "证据请求", id)
		}
		if err := workflow.CheckEvidenceTransition(er.Status, entity.EvidenceStatusUnderReview); err != nil {
			return err
		}
		n, err := repos.Evidence.Transition(ctx, id, []entity.EvidenceStatus{entity.EvidenceStatusSubmitted},
			entity.EvidenceStatusUnderReview, map[string]interface{}{"reviewer_id": actor.UserID})
		if err != nil {
			return fmt.Errorf("更新证据请求状态失败: %w", err)
		}
		if n == 0 {
			return raced("证据请求")
		}
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityEvidenceRequest, id, "start_review",
			string(entity.EvidenceStatusSubmitted), string(entity.EvidenceStatusUnderReview), "", actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(id, entity.EvidenceStatusSubmitted, entity.EvidenceStatusUnderReview)
	return s.repos.Evidence.FindByID(ctx, id)
}

// Decide UNDER_REVIEW -> ACCEPTED|REJECTED。ACCEPTED 同事务关闭关联的不符合项。
func (s *EvidenceService) Decide(ctx context.Context, actor Actor, id string, req DecideEvidenceReq) (*entity.EvidenceRequest, error) {
	if err := authorize(actor, policy.OpEvidenceDecide); err != nil {
		return nil, err
	}
	note := strings.TrimSpace(req.Note)
	if err := workflow.ValidateEvidenceDecision(req.Decision, note); err != nil {
		return nil, err
	}

	var closed *entity.Finding
	err := s.inTx(ctx, func(repos *repository.Repositories) error {
		er, err := repos.Evidence.FindByID(ctx, id)
		if err != nil {
			return lookupErr(err, "证据请求", id)
		}
		if err := workflow.CheckEvidenceTransition(er.Status, req.Decision); err != nil {
			return err
		}
		n, err := repos.Evidence.Transition(ctx, id, []entity.EvidenceStatus{entity.EvidenceStatusUnderReview}, req.Decision,
			map[string]interface{}{
				"reviewer_id": actor.UserID,
				"review_note": note,
				"reviewed_at": time.Now(),
			})
		if err != nil {
			return fmt.Errorf("更新证据请求状态失败: %w", err)
		}
		if n == 0 {
			return raced("证据请求")
		}
		if err := repos.ActivityLog.LogActivity(ctx, entity.LogEntityEvidenceRequest, id, "decide",
			string(entity.EvidenceStatusUnderReview), string(req.Decision), note, actor.UserID); err != nil {
			return err
		}

		if req.Decision != entity.EvidenceStatusAccepted || er.FindingID == nil {
			return nil
		}
		f, err := repos.Finding.FindByID(ctx, *er.FindingID)
		if err != nil {
			return lookupErr(err, "不符合项", *er.FindingID)
		}
		n, err = repos.Finding.Close(ctx, f.ID, entity.FindingClosedEvidenceAccepted)
		if err != nil {
			return fmt.Errorf("关闭不符合项失败: %w", err)
		}
		if n == 0 {
			// 已被其它途径关闭
			return nil
		}
		closed = f
		return repos.ActivityLog.LogActivity(ctx, entity.LogEntityFinding, f.ID, "close",
			string(f.Status), string(entity.FindingStatusClosed), "证据已接受", actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(id, entity.EvidenceStatusUnderReview, req.Decision)
	if closed != nil {
		metrics.RecordFinding(string(closed.Severity), metrics.FindingClosed)
		recordTransition(entity.LogEntityFinding, string(closed.Status), string(entity.FindingStatusClosed))
		s.publish(events.TypeFindingUpdate, map[string]string{
			"finding_id": closed.ID,
			"status":     string(entity.FindingStatusClosed),
			"reason":     entity.FindingClosedEvidenceAccepted,
		})
	}
	return s.repos.Evidence.FindByID(ctx, id)
}

// DownloadURL 证据文件下载地址；外链直接返回原地址
func (s *EvidenceService) DownloadURL(ctx context.Context, actor Actor, itemID string) (string, error) {
	if err := authorize(actor, policy.OpRead); err != nil {
		return "", err
	}
	item, err := s.repos.Evidence.FindItemByID(ctx, itemID)
	if err != nil {
		return "", lookupErr(err, "证据", itemID)
	}
	if item.Kind == entity.SubmissionKindLink {
		return item.URL, nil
	}
	return s.store.PresignedURL(ctx, item.StorageKey, item.DocumentName, downloadURLExpiry)
}

// removeOrphan 提交未落库时删除已上传的文件
func (s *EvidenceService) removeOrphan(ctx context.Context, key string) {
	if err := s.store.Remove(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("remove orphaned evidence object failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *EvidenceService) afterTransition(id string, from, to entity.EvidenceStatus) {
	recordTransition(entity.LogEntityEvidenceRequest, string(from), string(to))
	s.logger.Info("evidence request transitioned", zap.String("request_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
	s.publishEvidence(id, string(from), string(to))
}

func (s *EvidenceService) publishEvidence(id, from, to string) {
	s.publish(events.TypeEvidenceUpdate, map[string]string{
		"request_id": id,
		"from":       from,
		"to":         to,
	})
}
