package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/services"
)

// Service exports campaign call logs and compliance violations to Excel
type Service struct {
	campaigns  services.CampaignStore
	callLogs   services.CallLogStore
	compliance services.ComplianceStore
	exportsDir string
}

// NewExportService creates a new export service instance
func NewExportService(
	campaigns services.CampaignStore,
	callLogs services.CallLogStore,
	compliance services.ComplianceStore,
	exportsDir string) *Service {
	if _, err := os.Stat(exportsDir); os.IsNotExist(err) {
		os.MkdirAll(exportsDir, 0755)
	}

	return &Service{
		campaigns:  campaigns,
		callLogs:   callLogs,
		compliance: compliance,
		exportsDir: exportsDir,
	}
}

// ExportResult contains the result of an export operation
type ExportResult struct {
	Success  bool
	Message  string
	Filename string
	FilePath string
}

// ExportCampaignLogs exports a campaign's full call log to an Excel file
func (s *Service) ExportCampaignLogs(campaignID string) (*ExportResult, error) {
	campaign, err := s.campaigns.GetByID(campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign with id %s not found", campaignID)
	}

	rows, err := s.callLogs.GetAllByCampaign(campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get call logs: %w", err)
	}

	timestamp := time.Now().Unix()
	filename := fmt.Sprintf("campaign_%s_logs_%d.xlsx", campaignID, timestamp)
	filePath := filepath.Join(s.exportsDir, filename)

	f := excelize.NewFile()

	completedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"C6EFCE"}, // Green
			Pattern: 1,
		},
	})

	blockedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"FFC7CE"}, // Red
			Pattern: 1,
		},
	})

	failedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"D9D9D9"}, // Gray
			Pattern: 1,
		},
	})

	queuedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"FFFF00"}, // Yellow
			Pattern: 1,
		},
	})

	sheetName := "Call Log"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	f.SetActiveSheet(0)

	columns := []string{
		"id", "campaign_name", "contact_name", "phone_number", "caller_number",
		"status", "attempt_count", "last_attempt_at", "provider_call_id",
		"duration", "detail", "created_at", "updated_at",
	}

	for i, col := range columns {
		cell := fmt.Sprintf("%s1", columnToLetter(i+1))
		f.SetCellValue(sheetName, cell, col)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"FFFF00"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err == nil {
		f.SetCellStyle(sheetName, "A1", columnToLetter(len(columns))+strconv.Itoa(1), headerStyle)
	}

	for i, col := range columns {
		colLetter := columnToLetter(i + 1)
		width := 20.0

		switch col {
		case "id", "provider_call_id":
			width = 38.0
		case "phone_number", "caller_number":
			width = 16.0
		case "status", "attempt_count", "duration":
			width = 12.0
		case "detail":
			width = 50.0
		}

		f.SetColWidth(sheetName, colLetter, colLetter, width)
	}

	if len(rows) > 0 {
		for j, row := range rows {
			rowNum := j + 2

			lastAttempt := ""
			if row.LastAttemptAt != nil {
				lastAttempt = row.LastAttemptAt.Format(time.RFC3339)
			}

			f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), row.ID)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), campaign.Name)
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), row.Contact.FullName())
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), row.PhoneNumber)
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), row.CallerNumber)
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), string(row.Status))
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowNum), row.AttemptCount)
			f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowNum), lastAttempt)
			f.SetCellValue(sheetName, fmt.Sprintf("I%d", rowNum), row.ProviderCallID)
			f.SetCellValue(sheetName, fmt.Sprintf("J%d", rowNum), row.Duration)
			f.SetCellValue(sheetName, fmt.Sprintf("K%d", rowNum), row.Detail)
			f.SetCellValue(sheetName, fmt.Sprintf("L%d", rowNum), row.CreatedAt.Format(time.RFC3339))
			f.SetCellValue(sheetName, fmt.Sprintf("M%d", rowNum), row.UpdatedAt.Format(time.RFC3339))

			lastCell := fmt.Sprintf("%s%d", columnToLetter(len(columns)), rowNum)
			switch row.Status {
			case models.CallStatusCompleted, models.CallStatusAnswered:
				f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), lastCell, completedStyle)
			case models.CallStatusDNCBlocked, models.CallStatusComplianceBlocked:
				f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), lastCell, blockedStyle)
			case models.CallStatusFailed, models.CallStatusCanceled:
				f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), lastCell, failedStyle)
			case models.CallStatusQueued:
				f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), lastCell, queuedStyle)
			}
		}
	} else {
		f.SetCellValue(sheetName, "A2", "no call logs found for this campaign")
	}

	if err := f.SaveAs(filePath); err != nil {
		return nil, fmt.Errorf("failed to save Excel file: %w", err)
	}

	return &ExportResult{
		Success:  true,
		Message:  fmt.Sprintf("Successfully exported %d call logs for campaign %s", len(rows), campaignID),
		Filename: filename,
		FilePath: filePath,
	}, nil
}

// ExportViolations exports compliance violations to an Excel file,
// optionally filtered by violation type
func (s *Service) ExportViolations(violationType string) (*ExportResult, error) {
	violations, err := s.compliance.AllViolations()
	if err != nil {
		return nil, fmt.Errorf("failed to get violations: %w", err)
	}
	if violationType != "" {
		filtered := violations[:0]
		for _, v := range violations {
			if string(v.Type) == violationType {
				filtered = append(filtered, v)
			}
		}
		violations = filtered
	}

	timestamp := time.Now().Unix()
	filename := fmt.Sprintf("compliance_violations_%d.xlsx", timestamp)
	filePath := filepath.Join(s.exportsDir, filename)

	f := excelize.NewFile()

	sheetName := "Violations"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	f.SetActiveSheet(0)

	columns := []string{
		"id", "phone_number", "type", "reason",
		"campaign_id", "contact_id", "agent_id", "created_at",
	}

	for i, col := range columns {
		cell := fmt.Sprintf("%s1", columnToLetter(i+1))
		f.SetCellValue(sheetName, cell, col)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"FFC000"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err == nil {
		f.SetCellStyle(sheetName, "A1", columnToLetter(len(columns))+strconv.Itoa(1), headerStyle)
	}

	for i, col := range columns {
		colLetter := columnToLetter(i + 1)
		width := 20.0

		switch col {
		case "id", "campaign_id", "contact_id", "agent_id":
			width = 38.0
		case "phone_number":
			width = 16.0
		case "type":
			width = 10.0
		case "reason":
			width = 60.0
		}

		f.SetColWidth(sheetName, colLetter, colLetter, width)
	}

	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}

	if len(violations) > 0 {
		for j, v := range violations {
			rowNum := j + 2
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), v.ID)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), v.PhoneNumber)
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), string(v.Type))
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", rowNum), v.Reason)
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", rowNum), deref(v.CampaignID))
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", rowNum), deref(v.ContactID))
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", rowNum), deref(v.AgentID))
			f.SetCellValue(sheetName, fmt.Sprintf("H%d", rowNum), v.CreatedAt.Format(time.RFC3339))
		}
	} else {
		f.SetCellValue(sheetName, "A2", "no violations recorded")
	}

	if err := f.SaveAs(filePath); err != nil {
		return nil, fmt.Errorf("failed to save Excel file: %w", err)
	}

	return &ExportResult{
		Success:  true,
		Message:  fmt.Sprintf("Successfully exported %d violations", len(violations)),
		Filename: filename,
		FilePath: filePath,
	}, nil
}

// Helper function to convert column number to Excel column letter
func columnToLetter(col int) string {
	var result string
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
