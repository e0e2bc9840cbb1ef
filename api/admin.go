package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/service/admin"
)

type AdminHandler struct {
	admins admin.AdminUseCase
}

func NewAdminHandler(admins admin.AdminUseCase) *AdminHandler {
	return &AdminHandler{admins: admins}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.PATCH("/courts/:id", h.setCourtActive)
	router.POST("/blocks", h.addBlock)
	router.DELETE("/blocks/:id", h.removeBlock)
	router.PATCH("/config", h.setConfig)
	router.POST("/reservations", h.createManualReservation)
	router.GET("/audit", h.listAudit)
}

type setCourtActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *AdminHandler) setCourtActive(c *gin.Context) {
	var req setCourtActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	court, err := h.admins.SetCourtActive(c.Request.Context(), actorID(c), c.Param("id"), *req.Active)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, courtResponse{ID: court.ID, Name: court.Name, Active: court.Active})
}

type addBlockRequest struct {
	CourtID string `json:"court_id"`
	Date    string `json:"date"`
	Slot    string `json:"slot"`
	Reason  string `json:"reason"`
}

func (h *AdminHandler) addBlock(c *gin.Context) {
	var req addBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, slot, err := parseDateSlot(req.Date, req.Slot)
	if err != nil {
		writeError(c, err)
		return
	}
	block, err := h.admins.AddBlock(c.Request.Context(), actorID(c), admin.BlockInput{
		CourtID: req.CourtID,
		Date:    date,
		Slot:    slot,
		Reason:  req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       block.ID,
		"court_id": block.CourtID,
		"date":     block.Date.Format(domain.DateLayout),
		"slot":     string(block.Slot),
		"reason":   block.Reason,
	})
}

func (h *AdminHandler) removeBlock(c *gin.Context) {
	if err := h.admins.RemoveBlock(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type configResponse struct {
	RequireEmailValidation bool   `json:"require_email_validation"`
	RequirePhoneValidation bool   `json:"require_phone_validation"`
	MemberPrice            int64  `json:"member_price"`
	NonMemberPrice         int64  `json:"non_member_price"`
	Currency               string `json:"currency"`
}

type setConfigRequest struct {
	RequireEmailValidation *bool   `json:"require_email_validation"`
	RequirePhoneValidation *bool   `json:"require_phone_validation"`
	MemberPrice            *int64  `json:"member_price"`
	NonMemberPrice         *int64  `json:"non_member_price"`
	Currency               *string `json:"currency"`
}

func (h *AdminHandler) setConfig(c *gin.Context) {
	var req setConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg, err := h.admins.SetConfig(c.Request.Context(), actorID(c), domain.ConfigPatch{
		RequireEmailValidation: req.RequireEmailValidation,
		RequirePhoneValidation: req.RequirePhoneValidation,
		MemberPrice:            req.MemberPrice,
		NonMemberPrice:         req.NonMemberPrice,
		Currency:               req.Currency,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, configResponse{
		RequireEmailValidation: cfg.RequireEmailValidation,
		RequirePhoneValidation: cfg.RequirePhoneValidation,
		MemberPrice:            cfg.MemberPrice,
		NonMemberPrice:         cfg.NonMemberPrice,
		Currency:               cfg.Currency,
	})
}

type manualReservationRequest struct {
	TargetUserID string `json:"target_user_id"`
	CourtID      string `json:"court_id"`
	Date         string `json:"date"`
	Slot         string `json:"slot"`
	MarkPaidCash bool   `json:"mark_paid_cash"`
}

func (h *AdminHandler) createManualReservation(c *gin.Context) {
	var req manualReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, slot, err := parseDateSlot(req.Date, req.Slot)
	if err != nil {
		writeError(c, err)
		return
	}
	reservation, err := h.admins.CreateManualReservation(c.Request.Context(), actorID(c), admin.ManualReservationInput{
		TargetUserID: req.TargetUserID,
		CourtID:      req.CourtID,
		Date:         date,
		Slot:         slot,
		MarkPaidCash: req.MarkPaidCash,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(reservation))
}

func (h *AdminHandler) listAudit(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	entries, err := h.admins.ListAudit(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"id":         e.ID,
			"actor_id":   e.ActorID,
			"action":     string(e.Action),
			"detail":     e.Detail,
			"created_at": e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
