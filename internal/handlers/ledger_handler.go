package handlers

import (
	"net/http"
	"time"

	"order_engine/internal/services"

	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	ledgerService services.LedgerService
}

func NewLedgerHandler(ledgerService services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// dateRange reads the required start and end query parameters.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	startParam, endParam := c.Query("start"), c.Query("end")
	if startParam == "" || endParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end are required (format: YYYY-MM-DD)"})
		return time.Time{}, time.Time{}, false
	}
	start, err := parseDate(startParam, false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date format. Use YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	end, err := parseDate(endParam, true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date format. Use YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *LedgerHandler) ListEntries(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}
	entries, err := h.ledgerService.QueryByDateRange(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (h *LedgerHandler) Summary(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		return
	}
	summary, err := h.ledgerService.Summary(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *LedgerHandler) CreateEntry(c *gin.Context) {
	var req services.ManualEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	entry, err := h.ledgerService.CreateManual(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *LedgerHandler) UpdateEntry(c *gin.Context) {
	var req services.LedgerPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	entry, err := h.ledgerService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *LedgerHandler) DeleteEntry(c *gin.Context) {
	if err := h.ledgerService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
