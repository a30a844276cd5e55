package entity

import "time"

// ScopeType 周期检查范围
type ScopeType string

const (
	ScopeSite        ScopeType = "SITE"
	ScopeParticipant ScopeType = "PARTICIPANT"
)

// Valid 是否为合法范围
func (s ScopeType) Valid() bool {
	return s == ScopeSite || s == ScopeParticipant
}

// Frequency 检查频率
type Frequency string

const (
	FrequencyDaily  Frequency = "DAILY"
	FrequencyWeekly Frequency = "WEEKLY"
)

// Valid 是否为合法频率
func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// ResponseType 检查项应答类型
type ResponseType string

const (
	ResponseTypeYesNoNA       ResponseType = "YES_NO_NA"
	ResponseTypeNumber        ResponseType = "NUMBER"
	ResponseTypeText          ResponseType = "TEXT"
	ResponseTypePhotoRequired ResponseType = "PHOTO_REQUIRED"
)

// Valid 是否为合法应答类型
func (t ResponseType) Valid() bool {
	switch t {
	case ResponseTypeYesNoNA, ResponseTypeNumber, ResponseTypeText, ResponseTypePhotoRequired:
		return true
	}
	return false
}

// ComplianceTemplate 周期检查模板
type ComplianceTemplate struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	ScopeType ScopeType `json:"scope_type" gorm:"size:20;not null"`
	Frequency Frequency `json:"frequency" gorm:"size:10;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []ComplianceTemplateItem `json:"items,omitempty" gorm:"foreignKey:TemplateID"`
}

func (ComplianceTemplate) TableName() string {
	return "compliance_templates"
}

// ComplianceTemplateItem 周期检查项
type ComplianceTemplateItem struct {
	ID           string       `json:"id" gorm:"primaryKey;size:36"`
	TemplateID   string       `json:"template_id" gorm:"size:36;not null;uniqueIndex:uk_compliance_item_code"`
	Code         string       `json:"code" gorm:"size:50;not null;uniqueIndex:uk_compliance_item_code"`
	Text         string       `json:"text" gorm:"type:text;not null"`
	ResponseType ResponseType `json:"response_type" gorm:"size:20;not null"`
	IsCritical   bool         `json:"is_critical" gorm:"default:false"`
	MinValue     *float64     `json:"min_value"`
	MaxValue     *float64     `json:"max_value"`
	SortOrder    int          `json:"sort_order" gorm:"default:0"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (ComplianceTemplateItem) TableName() string {
	return "compliance_template_items"
}

// RunStatus 周期检查状态
type RunStatus string

const (
	RunStatusOpen      RunStatus = "OPEN"
	RunStatusSubmitted RunStatus = "SUBMITTED"
	RunStatusLocked    RunStatus = "LOCKED"
)

// StatusColor 检查结果颜色
type StatusColor string

const (
	StatusColorGreen StatusColor = "green"
	StatusColorAmber StatusColor = "amber"
	StatusColorRed   StatusColor = "red"
)

// ComplianceRun 一次周期检查，(scope_type, scope_entity_id, frequency, period_start) 唯一
type ComplianceRun struct {
	ID            string      `json:"id" gorm:"primaryKey;size:36"`
	TemplateID    string      `json:"template_id" gorm:"size:36;not null"`
	ScopeType     ScopeType   `json:"scope_type" gorm:"size:20;not null;uniqueIndex:uk_compliance_run_period"`
	ScopeEntityID string      `json:"scope_entity_id" gorm:"size:36;not null;uniqueIndex:uk_compliance_run_period"`
	Frequency     Frequency   `json:"frequency" gorm:"size:10;not null;uniqueIndex:uk_compliance_run_period"`
	PeriodStart   time.Time   `json:"period_start" gorm:"type:date;not null;uniqueIndex:uk_compliance_run_period"`
	PeriodEnd     time.Time   `json:"period_end" gorm:"type:date;not null"`
	Status        RunStatus   `json:"status" gorm:"size:20;not null;default:OPEN;index"`
	StatusColor   StatusColor `json:"status_color" gorm:"size:10"`

	CreatedBy   string     `json:"created_by" gorm:"size:36"`
	SubmittedBy *string    `json:"submitted_by" gorm:"size:36"`
	SubmittedAt *time.Time `json:"submitted_at"`
	LockedAt    *time.Time `json:"locked_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Responses []ComplianceResponse `json:"responses,omitempty" gorm:"foreignKey:RunID"`
}

func (ComplianceRun) TableName() string {
	return "compliance_runs"
}

// ComplianceResponse 检查项应答，(run_id, item_id) 唯一
type ComplianceResponse struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	RunID       string    `json:"run_id" gorm:"size:36;not null;uniqueIndex:uk_run_item"`
	ItemID      string    `json:"item_id" gorm:"size:36;not null;uniqueIndex:uk_run_item"`
	Value       string    `json:"value" gorm:"type:text"`
	Note        string    `json:"note" gorm:"type:text"`
	RespondedBy string    `json:"responded_by" gorm:"size:36"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ComplianceResponse) TableName() string {
	return "compliance_responses"
}

// ActionSeverity 整改行动严重程度
type ActionSeverity string

const (
	ActionSeverityLow    ActionSeverity = "LOW"
	ActionSeverityMedium ActionSeverity = "MEDIUM"
	ActionSeverityHigh   ActionSeverity = "HIGH"
)

// ActionStatus 整改行动状态
type ActionStatus string

const (
	ActionStatusOpen       ActionStatus = "OPEN"
	ActionStatusInProgress ActionStatus = "IN_PROGRESS"
	ActionStatusClosed     ActionStatus = "CLOSED"
)

// ComplianceAction 整改行动，仅由周期检查提交时生成
type ComplianceAction struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	RunID       string         `json:"run_id" gorm:"size:36;not null;index"`
	ItemID      string         `json:"item_id" gorm:"size:36;not null"`
	Severity    ActionSeverity `json:"severity" gorm:"size:10;not null"`
	Status      ActionStatus   `json:"status" gorm:"size:20;not null;default:OPEN;index"`
	DueAt       time.Time      `json:"due_at"`
	Description string         `json:"description" gorm:"type:text"`
	ClosedBy    *string        `json:"closed_by" gorm:"size:36"`
	ClosedAt    *time.Time     `json:"closed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (ComplianceAction) TableName() string {
	return "compliance_actions"
}

// ValidActionTransitions 合法的整改行动状态流转
var ValidActionTransitions = map[ActionStatus][]ActionStatus{
	ActionStatusOpen:       {ActionStatusInProgress, ActionStatusClosed},
	ActionStatusInProgress: {ActionStatusClosed},
}
