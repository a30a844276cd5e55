package repository

import (
	"fmt"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"gorm.io/gorm"
)

// migrationSQL AutoMigrate 之外的约束与部分索引
var migrationSQL = []string{
	// 状态取值约束
	"ALTER TABLE audits DROP CONSTRAINT IF EXISTS audits_status_check",
	"ALTER TABLE audits ADD CONSTRAINT audits_status_check CHECK (status IN ('DRAFT', 'IN_PROGRESS', 'IN_REVIEW', 'CLOSED'))",
	"ALTER TABLE evidence_requests DROP CONSTRAINT IF EXISTS evidence_requests_status_check",
	"ALTER TABLE evidence_requests ADD CONSTRAINT evidence_requests_status_check CHECK (status IN ('REQUESTED', 'SUBMITTED', 'UNDER_REVIEW', 'ACCEPTED', 'REJECTED'))",
	"ALTER TABLE compliance_runs DROP CONSTRAINT IF EXISTS compliance_runs_status_check",
	"ALTER TABLE compliance_runs ADD CONSTRAINT compliance_runs_status_check CHECK (status IN ('OPEN', 'SUBMITTED', 'LOCKED'))",
	"ALTER TABLE indicator_responses DROP CONSTRAINT IF EXISTS indicator_responses_rating_check",
	"ALTER TABLE indicator_responses ADD CONSTRAINT indicator_responses_rating_check CHECK (rating IN ('CONFORMANCE', 'OBSERVATION', 'MINOR_NC', 'MAJOR_NC'))",

	// 关闭审核时统计未关闭的严重不符合项
	"CREATE INDEX IF NOT EXISTS idx_findings_open_major ON findings (audit_id) WHERE status = 'OPEN' AND severity = 'MAJOR_NC'",
	// 逾期整改行动查询
	"CREATE INDEX IF NOT EXISTS idx_compliance_actions_due ON compliance_actions (due_at) WHERE status <> 'CLOSED'",
}

// AutoMigrate 建表并执行补充迁移
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(entity.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("migration %q: %w", sql, err)
		}
	}
	return nil
}
