package entity

import "time"

// ChecklistSection 文档检查项分组
type ChecklistSection string

const (
	SectionHygiene        ChecklistSection = "HYGIENE"
	SectionImplementation ChecklistSection = "IMPLEMENTATION"
	SectionCritical       ChecklistSection = "CRITICAL"
)

// Valid 是否为合法分组
func (s ChecklistSection) Valid() bool {
	switch s {
	case SectionHygiene, SectionImplementation, SectionCritical:
		return true
	}
	return false
}

// ChecklistAnswer 检查项应答
type ChecklistAnswer string

const (
	AnswerYes    ChecklistAnswer = "YES"
	AnswerNo     ChecklistAnswer = "NO"
	AnswerPartly ChecklistAnswer = "PARTLY"
	AnswerNA     ChecklistAnswer = "NA"
)

// Valid 是否为合法应答
func (a ChecklistAnswer) Valid() bool {
	switch a {
	case AnswerYes, AnswerNo, AnswerPartly, AnswerNA:
		return true
	}
	return false
}

// DocumentChecklistItem 文档质量检查项，按文档类型分组
type DocumentChecklistItem struct {
	ID           string           `json:"id" gorm:"primaryKey;size:36"`
	DocumentType string           `json:"document_type" gorm:"size:50;not null;uniqueIndex:uk_checklist_code"`
	Code         string           `json:"code" gorm:"size:50;not null;uniqueIndex:uk_checklist_code"`
	Section      ChecklistSection `json:"section" gorm:"size:20;not null"`
	IsCritical   bool             `json:"is_critical" gorm:"default:false"`
	Text         string           `json:"text" gorm:"type:text;not null"`
	SortOrder    int              `json:"sort_order" gorm:"default:0"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (DocumentChecklistItem) TableName() string {
	return "document_checklist_items"
}

// ReviewDecision 文档审核结论
type ReviewDecision string

const (
	ReviewDecisionAccept ReviewDecision = "ACCEPT"
	ReviewDecisionReject ReviewDecision = "REJECT"
)

// DocumentReview 文档质量审核，每个证据项最多一条
type DocumentReview struct {
	ID               string           `json:"id" gorm:"primaryKey;size:36"`
	EvidenceItemID   string           `json:"evidence_item_id" gorm:"size:36;not null;uniqueIndex"`
	DocumentType     string           `json:"document_type" gorm:"size:50;not null"`
	Responses        ChecklistAnswers `json:"responses" gorm:"type:jsonb"`
	Decision         ReviewDecision   `json:"decision" gorm:"size:10;not null"`
	DQSPercent       int              `json:"dqs_percent"`
	CriticalFailures int              `json:"critical_failures"`
	Comments         string           `json:"comments" gorm:"type:text"`
	ReviewerID       string           `json:"reviewer_id" gorm:"size:36;not null"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (DocumentReview) TableName() string {
	return "document_reviews"
}
