package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/services"
	"github.com/voicereachhq/dialer-services-backend/internal/services/excel"
	"github.com/voicereachhq/dialer-services-backend/internal/utils"
)

type ComplianceHandler struct {
	compliance    services.ComplianceStore
	exportService *excel.Service
}

func NewComplianceHandler(compliance services.ComplianceStore, exportService *excel.Service) *ComplianceHandler {
	return &ComplianceHandler{
		compliance:    compliance,
		exportService: exportService,
	}
}

// GetPolicy godoc
// @Summary Get the compliance policy
// @Description Get the global compliance policy; created with defaults on first access
// @Tags compliance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.CompliancePolicy
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/compliance/policy [get]
func (h *ComplianceHandler) GetPolicy(c *gin.Context) {
	policy, err := h.compliance.GetPolicy()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get compliance policy", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, policy)
}

// UpdatePolicy godoc
// @Summary Update the compliance policy
// @Description Replace the global compliance policy settings
// @Tags compliance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateCompliancePolicyRequest true "Policy settings"
// @Success 200 {object} models.CompliancePolicy
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/compliance/policy [put]
func (h *ComplianceHandler) UpdatePolicy(c *gin.Context) {
	var req models.UpdateCompliancePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	policy, err := h.compliance.UpdatePolicy(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update compliance policy", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, policy)
}

// GetViolations godoc
// @Summary List compliance violations
// @Description Paged violation audit log, newest first, filterable by type
// @Tags compliance
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param type query string false "Violation type filter (DNC, TCPA, FDCPA)"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/compliance/violations [get]
func (h *ComplianceHandler) GetViolations(c *gin.Context) {
	page, pageSize := utils.ParsePaginationFromQuery(c.Query("page"), c.Query("page_size"))

	violations, total, err := h.compliance.ListViolations(c.Query("type"), utils.CalculateOffset(page, pageSize), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get violations", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"violations": violations,
		"pagination": utils.CalculatePaginationInfo(total, page, pageSize),
	})
}

// ExportViolations godoc
// @Summary Export compliance violations
// @Description Export the violation audit log as an Excel file, filterable by type
// @Tags compliance
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param type query string false "Violation type filter (DNC, TCPA, FDCPA)"
// @Success 200 {file} file
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/compliance/violations/export [get]
func (h *ComplianceHandler) ExportViolations(c *gin.Context) {
	result, err := h.exportService.ExportViolations(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export violations", "details": err.Error()})
		return
	}
	c.FileAttachment(result.FilePath, result.Filename)
}
