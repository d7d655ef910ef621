package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/services"
	"github.com/voicereachhq/dialer-services-backend/internal/services/excel"
	"github.com/voicereachhq/dialer-services-backend/internal/utils"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	exportService   *excel.Service
}

func NewCampaignHandler(campaignService *services.CampaignService, exportService *excel.Service) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		exportService:   exportService,
	}
}

// CreateCampaign godoc
// @Summary Create a new campaign
// @Description Create a new dialing campaign; attempt expansion runs asynchronously
// @Tags campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateCampaignRequest true "Create campaign request"
// @Success 201 {object} models.CampaignResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req models.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	campaign, err := h.campaignService.Create(&req)
	if err != nil {
		if errors.Is(err, services.ErrCampaignNameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "invalid") ||
			strings.Contains(err.Error(), "must be") || strings.Contains(err.Error(), "required") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create campaign", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, campaign.ToResponse())
}

// GetCampaigns godoc
// @Summary List campaigns
// @Description Admins see all campaigns, agents only the ones assigned to them
// @Tags campaigns
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.CampaignResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	userID := c.MustGet("user_id").(string)
	role := c.MustGet("role").(string)

	campaigns, err := h.campaignService.List(role, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get campaigns", "details": err.Error()})
		return
	}

	responses := make([]*models.CampaignResponse, 0, len(campaigns))
	for _, campaign := range campaigns {
		responses = append(responses, campaign.ToResponse())
	}
	c.JSON(http.StatusOK, responses)
}

// GetCampaign godoc
// @Summary Get a campaign
// @Description Get one campaign with its live counters
// @Tags campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.CampaignResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	campaign, err := h.campaignService.GetAuthorized(c.Param("id"), c.MustGet("role").(string), c.MustGet("user_id").(string))
	if err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get campaign", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, campaign.ToResponse())
}

// UpdateCampaignStatus godoc
// @Summary Start or pause a campaign
// @Description Transition a campaign to running or paused, starting or stopping its dialer worker
// @Tags campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Param request body models.UpdateCampaignStatusRequest true "Target status"
// @Success 200 {object} models.CampaignResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/status [put]
func (h *CampaignHandler) UpdateCampaignStatus(c *gin.Context) {
	var req models.UpdateCampaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	campaign, err := h.campaignService.SetStatus(c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if strings.Contains(err.Error(), "cannot") || strings.Contains(err.Error(), "must be") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update campaign status", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, campaign.ToResponse())
}

// DeleteCampaign godoc
// @Summary Delete a campaign
// @Description Stop the campaign's worker and delete it together with its call log
// @Tags campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	if err := h.campaignService.Delete(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete campaign", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted successfully"})
}

// GetCampaignLogs godoc
// @Summary List a campaign's call log
// @Description Paged call log listing, searchable by phone number and filterable by status
// @Tags campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param search query string false "Phone number search"
// @Param status query string false "Status filter"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/logs [get]
func (h *CampaignHandler) GetCampaignLogs(c *gin.Context) {
	page, pageSize := utils.ParsePaginationFromQuery(c.Query("page"), c.Query("page_size"))
	opts := models.CallLogListOptions{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Status:   c.Query("status"),
	}

	rows, total, err := h.campaignService.ListLogs(c.Param("id"), c.MustGet("role").(string), c.MustGet("user_id").(string), opts)
	if err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get call logs", "details": err.Error()})
		return
	}

	responses := make([]*models.CallLogResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, row.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":       responses,
		"pagination": utils.CalculatePaginationInfo(total, page, pageSize),
	})
}

// ExportCampaignLogs godoc
// @Summary Export a campaign's call log
// @Description Export the full call log of a campaign as an Excel file
// @Tags campaigns
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Campaign ID"
// @Success 200 {file} file
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/logs/export [get]
func (h *CampaignHandler) ExportCampaignLogs(c *gin.Context) {
	if _, err := h.campaignService.GetAuthorized(c.Param("id"), c.MustGet("role").(string), c.MustGet("user_id").(string)); err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export call logs", "details": err.Error()})
		return
	}

	result, err := h.exportService.ExportCampaignLogs(c.Param("id"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export call logs", "details": err.Error()})
		return
	}
	c.FileAttachment(result.FilePath, result.Filename)
}
