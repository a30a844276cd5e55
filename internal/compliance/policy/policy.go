// Package policy is the single (role, operation) capability table consulted by
// services before any state transition.
package policy

import (
	"strings"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
)

// 角色
const (
	RoleCompanyAdmin  = "CompanyAdmin"
	RoleAuditor       = "Auditor"
	RoleReviewer      = "Reviewer"
	RoleStaffReadOnly = "StaffReadOnly"
)

// Operation 受控操作
type Operation string

const (
	OpRead Operation = "read"

	OpAuditCreate      Operation = "audit.create"
	OpAuditUpdateScope Operation = "audit.update_scope"
	OpAuditStart       Operation = "audit.start"
	OpAuditRespond     Operation = "audit.respond"
	OpAuditComplete    Operation = "audit.complete"
	OpAuditAddInReview Operation = "audit.add_in_review"
	OpAuditClose       Operation = "audit.close"

	OpFindingRaise        Operation = "finding.raise"
	OpFindingMarkReview   Operation = "finding.mark_under_review"
	OpEvidenceRequest     Operation = "evidence.request"
	OpEvidenceSubmit      Operation = "evidence.submit"
	OpEvidenceStartReview Operation = "evidence.start_review"
	OpEvidenceDecide      Operation = "evidence.decide"
	OpDocumentReview      Operation = "document.review"

	OpRunCreate    Operation = "run.create"
	OpRunRespond   Operation = "run.respond"
	OpRunSubmit    Operation = "run.submit"
	OpRunLock      Operation = "run.lock"
	OpActionUpdate Operation = "action.update"

	OpReferenceImport Operation = "reference.import"
)

var (
	reviewers = []string{RoleCompanyAdmin, RoleAuditor, RoleReviewer}
	assessors = []string{RoleCompanyAdmin, RoleAuditor}
	everyone  = []string{RoleCompanyAdmin, RoleAuditor, RoleReviewer, RoleStaffReadOnly}
	adminOnly = []string{RoleCompanyAdmin}
)

// capabilities 每个操作允许的角色
var capabilities = map[Operation][]string{
	OpRead: everyone,

	OpAuditCreate:      assessors,
	OpAuditUpdateScope: assessors,
	OpAuditStart:       assessors,
	OpAuditRespond:     assessors,
	OpAuditComplete:    assessors,
	OpAuditAddInReview: reviewers,
	OpAuditClose:       assessors,

	OpFindingRaise:        reviewers,
	OpFindingMarkReview:   reviewers,
	OpEvidenceRequest:     reviewers,
	OpEvidenceSubmit:      reviewers,
	OpEvidenceStartReview: reviewers,
	OpEvidenceDecide:      reviewers,
	OpDocumentReview:      reviewers,

	OpRunCreate:    reviewers,
	OpRunRespond:   reviewers,
	OpRunSubmit:    reviewers,
	OpRunLock:      adminOnly,
	OpActionUpdate: reviewers,

	OpReferenceImport: adminOnly,
}

// Allowed 任一角色具备该操作权限即可
func Allowed(roles []string, op Operation) bool {
	for _, want := range capabilities[op] {
		for _, have := range roles {
			if strings.EqualFold(strings.TrimSpace(have), want) {
				return true
			}
		}
	}
	return false
}

// Authorize 无权限时返回 Forbidden
func Authorize(roles []string, op Operation) error {
	if Allowed(roles, op) {
		return nil
	}
	return apperr.Forbidden("角色 %v 无权执行操作 %s", roles, op)
}

// RolesFor 返回具备该操作权限的角色
func RolesFor(op Operation) []string {
	out := make([]string, len(capabilities[op]))
	copy(out, capabilities[op])
	return out
}

// ValidRole 是否为已知角色（不区分大小写）
func ValidRole(role string) bool {
	for _, r := range everyone {
		if strings.EqualFold(strings.TrimSpace(role), r) {
			return true
		}
	}
	return false
}
