// Package importer parses reference data (audit indicators, document
// checklists and recurring compliance items) from Excel workbooks.
package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Kind 导入类型
type Kind string

const (
	KindIndicators      Kind = "indicators"
	KindChecklist       Kind = "checklist"
	KindComplianceItems Kind = "compliance-items"
)

var headers = map[Kind][]string{
	KindIndicators:      {"编码", "指标", "指引", "排序"},
	KindChecklist:       {"文档类型", "编码", "分组", "关键项", "检查项", "排序"},
	KindComplianceItems: {"编码", "检查项", "应答类型", "关键项", "最小值", "最大值", "排序"},
}

// RowError 行级错误，行号从1开始（含表头）
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result 导入结果
type Result struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors,omitempty"`
}

func (r *Result) fail(row int, format string, args ...interface{}) {
	r.Failed++
	r.Errors = append(r.Errors, RowError{Row: row, Message: fmt.Sprintf(format, args...)})
}

// ParseKind 解析导入类型
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := headers[k]; !ok {
		return "", fmt.Errorf("不支持的导入类型: %s", s)
	}
	return k, nil
}

// Template 生成导入模板
func Template(kind Kind) (*excelize.File, error) {
	cols, ok := headers[kind]
	if !ok {
		return nil, fmt.Errorf("不支持的导入类型: %s", kind)
	}
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, err
	}

	row := make([]interface{}, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(cols))
	if err := f.SetCellStyle(sheet, "A1", last+"1", boldStyle); err != nil {
		return nil, err
	}
	return f, nil
}

func dataRows(f *excelize.File) ([][]string, error) {
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read excel: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}
	// 跳过表头
	return rows[1:], nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseBool(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "是", "Y", "YES", "TRUE", "1":
		return true
	}
	return false
}

func parseSort(s string, fallback int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return fallback
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseIndicators 解析审核指标：编码 | 指标 | 指引 | 排序
func ParseIndicators(f *excelize.File, templateID string) ([]entity.TemplateIndicator, *Result, error) {
	rows, err := dataRows(f)
	if err != nil {
		return nil, nil, err
	}
	result := &Result{}
	seen := map[string]bool{}
	var out []entity.TemplateIndicator
	for i, row := range rows {
		line := i + 2
		code, text := cell(row, 0), cell(row, 1)
		if code == "" || text == "" {
			result.fail(line, "编码和指标内容不能为空")
			continue
		}
		if seen[code] {
			result.fail(line, "编码重复: %s", code)
			continue
		}
		seen[code] = true
		out = append(out, entity.TemplateIndicator{
			ID:         uuid.New().String(),
			TemplateID: templateID,
			Code:       code,
			Text:       text,
			Guidance:   cell(row, 2),
			SortOrder:  parseSort(cell(row, 3), i+1),
			CreatedAt:  time.Now(),
		})
	}
	result.Imported = len(out)
	return out, result, nil
}

// ParseChecklist 解析文档检查项：文档类型 | 编码 | 分组 | 关键项 | 检查项 | 排序
func ParseChecklist(f *excelize.File) ([]entity.DocumentChecklistItem, *Result, error) {
	rows, err := dataRows(f)
	if err != nil {
		return nil, nil, err
	}
	result := &Result{}
	seen := map[string]bool{}
	var out []entity.DocumentChecklistItem
	for i, row := range rows {
		line := i + 2
		docType, code, text := cell(row, 0), cell(row, 1), cell(row, 4)
		if docType == "" || code == "" || text == "" {
			result.fail(line, "文档类型、编码和检查项不能为空")
			continue
		}
		section := entity.ChecklistSection(strings.ToUpper(cell(row, 2)))
		if !section.Valid() {
			result.fail(line, "分组不合法: %s", cell(row, 2))
			continue
		}
		key := docType + "/" + code
		if seen[key] {
			result.fail(line, "编码重复: %s", key)
			continue
		}
		seen[key] = true
		out = append(out, entity.DocumentChecklistItem{
			ID:           uuid.New().String(),
			DocumentType: docType,
			Code:         code,
			Section:      section,
			IsCritical:   parseBool(cell(row, 3)) || section == entity.SectionCritical,
			Text:         text,
			SortOrder:    parseSort(cell(row, 5), i+1),
			CreatedAt:    time.Now(),
		})
	}
	result.Imported = len(out)
	return out, result, nil
}

// ParseComplianceItems 解析周期检查项：编码 | 检查项 | 应答类型 | 关键项 | 最小值 | 最大值 | 排序
func ParseComplianceItems(f *excelize.File, templateID string) ([]entity.ComplianceTemplateItem, *Result, error) {
	rows, err := dataRows(f)
	if err != nil {
		return nil, nil, err
	}
	result := &Result{}
	seen := map[string]bool{}
	var out []entity.ComplianceTemplateItem
	for i, row := range rows {
		line := i + 2
		code, text := cell(row, 0), cell(row, 1)
		if code == "" || text == "" {
			result.fail(line, "编码和检查项不能为空")
			continue
		}
		respType := entity.ResponseType(strings.ToUpper(cell(row, 2)))
		if !respType.Valid() {
			result.fail(line, "应答类型不合法: %s", cell(row, 2))
			continue
		}
		minV, err := parseOptionalFloat(cell(row, 4))
		if err != nil {
			result.fail(line, "最小值不是数字: %s", cell(row, 4))
			continue
		}
		maxV, err := parseOptionalFloat(cell(row, 5))
		if err != nil {
			result.fail(line, "最大值不是数字: %s", cell(row, 5))
			continue
		}
		if minV != nil && maxV != nil && *minV > *maxV {
			result.fail(line, "最小值大于最大值")
			continue
		}
		if seen[code] {
			result.fail(line, "编码重复: %s", code)
			continue
		}
		seen[code] = true
		out = append(out, entity.ComplianceTemplateItem{
			ID:           uuid.New().String(),
			TemplateID:   templateID,
			Code:         code,
			Text:         text,
			ResponseType: respType,
			IsCritical:   parseBool(cell(row, 3)),
			MinValue:     minV,
			MaxValue:     maxV,
			SortOrder:    parseSort(cell(row, 6), i+1),
			CreatedAt:    time.Now(),
		})
	}
	result.Imported = len(out)
	return out, result, nil
}
