package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
	"github.com/voicereachhq/dialer-services-backend/internal/services"
	"github.com/voicereachhq/dialer-services-backend/internal/utils"
)

type DNCHandler struct {
	dnc services.DNCStore
}

func NewDNCHandler(dnc services.DNCStore) *DNCHandler {
	return &DNCHandler{dnc: dnc}
}

// ListEntries godoc
// @Summary List do-not-call entries
// @Description Paged listing of the do-not-call registry, newest first
// @Tags dnc
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/dnc [get]
func (h *DNCHandler) ListEntries(c *gin.Context) {
	page, pageSize := utils.ParsePaginationFromQuery(c.Query("page"), c.Query("page_size"))

	entries, total, err := h.dnc.List(utils.CalculateOffset(page, pageSize), pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list DNC entries", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":    entries,
		"pagination": utils.CalculatePaginationInfo(total, page, pageSize),
	})
}

// AddEntry godoc
// @Summary Add a number to the do-not-call registry
// @Description Normalize and register a number; duplicates are tolerated
// @Tags dnc
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AddDNCRequest true "Number to register"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/dnc [post]
func (h *DNCHandler) AddEntry(c *gin.Context) {
	var req models.AddDNCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	number, err := utils.NormalizePhone(req.PhoneNumber)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidPhone) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to normalize phone number", "details": err.Error()})
		return
	}

	source := req.Source
	if source == "" {
		source = models.DNCSourceManual
	}
	if err := h.dnc.Add(number, source); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add DNC entry", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"phone_number": number, "source": source})
}

// RemoveEntry godoc
// @Summary Remove a number from the do-not-call registry
// @Tags dnc
// @Produce json
// @Security BearerAuth
// @Param number path string true "Phone number in canonical form"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/dnc/{number} [delete]
func (h *DNCHandler) RemoveEntry(c *gin.Context) {
	number, err := utils.NormalizePhone(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number"})
		return
	}

	if err := h.dnc.Remove(number); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove DNC entry", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Number removed from DNC registry"})
}
