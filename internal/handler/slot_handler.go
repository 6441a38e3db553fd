package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roomboard/internal/dto"
	"github.com/noah-isme/roomboard/internal/service"
	"github.com/noah-isme/roomboard/pkg/response"
)

// SlotHandler exposes gap discovery and draft negotiation.
type SlotHandler struct {
	board *service.BoardService
}

// NewSlotHandler constructs the handler.
func NewSlotHandler(board *service.BoardService) *SlotHandler {
	return &SlotHandler{board: board}
}

// Gaps godoc
// @Summary Free day ranges in a room with fitting courses
// @Tags Drafts
// @Produce json
// @Param id path string true "Event ID"
// @Param room path int true "Room number"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/rooms/{room}/gaps [get]
func (h *SlotHandler) Gaps(c *gin.Context) {
	room, err := intParam(c, "room")
	if err != nil {
		response.Error(c, err)
		return
	}
	gaps, err := h.board.Gaps(c.Request.Context(), c.Param("id"), room)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, gaps, len(gaps))
}

// ListSlots godoc
// @Summary List open draft slots
// @Tags Drafts
// @Produce json
// @Param eventId query string false "Event ID"
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) ListSlots(c *gin.Context) {
	slots := h.board.Slots(c.Request.Context(), c.Query("eventId"))
	response.List(c, slots, len(slots))
}

// OpenSlot godoc
// @Summary Open a draft slot over a free range
// @Tags Drafts
// @Accept json
// @Produce json
// @Param payload body dto.OpenSlotRequest true "Slot range"
// @Success 201 {object} response.Envelope
// @Router /slots [post]
func (h *SlotHandler) OpenSlot(c *gin.Context) {
	var req dto.OpenSlotRequest
	if err := bindJSON(c, &req, "slot"); err != nil {
		response.Error(c, err)
		return
	}
	slot, err := h.board.OpenSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// CloseSlot godoc
// @Summary Close a draft slot
// @Tags Drafts
// @Param id path string true "Slot ID"
// @Success 204
// @Router /slots/{id} [delete]
func (h *SlotHandler) CloseSlot(c *gin.Context) {
	if err := h.board.CloseSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddCandidate godoc
// @Summary Add a pending course to a draft slot
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.CandidateRequest true "Candidate"
// @Success 200 {object} response.Envelope
// @Router /slots/{id}/candidates [post]
func (h *SlotHandler) AddCandidate(c *gin.Context) {
	var req dto.CandidateRequest
	if err := bindJSON(c, &req, "candidate"); err != nil {
		response.Error(c, err)
		return
	}
	slot, err := h.board.AddCandidate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// Promote godoc
// @Summary Commit a pending candidate after re-validation
// @Tags Drafts
// @Produce json
// @Param id path string true "Slot ID"
// @Param index path int true "Candidate index"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots/{id}/candidates/{index}/promote [post]
func (h *SlotHandler) Promote(c *gin.Context) {
	index, err := intParam(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	outcome, err := h.board.Promote(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome)
}

// Discard godoc
// @Summary Drop a pending candidate
// @Tags Drafts
// @Param id path string true "Slot ID"
// @Param index path int true "Candidate index"
// @Success 204
// @Router /slots/{id}/candidates/{index} [delete]
func (h *SlotHandler) Discard(c *gin.Context) {
	index, err := intParam(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.board.Discard(c.Request.Context(), c.Param("id"), index); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
