package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vpetrenko/courtbooking/internal/domain"
	"github.com/vpetrenko/courtbooking/internal/service/booking"
)

type CourtHandler struct {
	bookings booking.BookingUseCase
}

type courtResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type slotAvailabilityResponse struct {
	Slot      string `json:"slot"`
	Available bool   `json:"available"`
}

func NewCourtHandler(bookings booking.BookingUseCase) *CourtHandler {
	return &CourtHandler{bookings: bookings}
}

func (h *CourtHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id/availability", h.availability)
}

func (h *CourtHandler) list(c *gin.Context) {
	courts, err := h.bookings.Courts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]courtResponse, 0, len(courts))
	for _, court := range courts {
		out = append(out, courtResponse{ID: court.ID, Name: court.Name, Active: court.Active})
	}
	c.JSON(http.StatusOK, out)
}

func (h *CourtHandler) availability(c *gin.Context) {
	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	grid, err := h.bookings.Availability(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]slotAvailabilityResponse, 0, len(grid))
	for _, s := range grid {
		out = append(out, slotAvailabilityResponse{Slot: string(s.Slot), Available: s.Available})
	}
	c.JSON(http.StatusOK, gin.H{"court_id": c.Param("id"), "date": c.Query("date"), "slots": out})
}
