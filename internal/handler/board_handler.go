package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roomboard/internal/dto"
	"github.com/noah-isme/roomboard/internal/middleware"
	"github.com/noah-isme/roomboard/internal/service"
	appErrors "github.com/noah-isme/roomboard/pkg/errors"
	"github.com/noah-isme/roomboard/pkg/response"
)

// BoardHandler exposes catalog, placement and report endpoints.
type BoardHandler struct {
	board *service.BoardService
}

// NewBoardHandler constructs the handler.
func NewBoardHandler(board *service.BoardService) *BoardHandler {
	return &BoardHandler{board: board}
}

// ListEvents godoc
// @Summary List events with their day calendars
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *BoardHandler) ListEvents(c *gin.Context) {
	events := h.board.Events(c.Request.Context())
	response.List(c, events, len(events))
}

// LoadEvents godoc
// @Summary Replace every event
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.LoadEventsRequest true "Events"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events [put]
func (h *BoardHandler) LoadEvents(c *gin.Context) {
	var req dto.LoadEventsRequest
	if err := bindJSON(c, &req, "events"); err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.board.LoadEvents(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// ListCourses godoc
// @Summary List courses with assignment state
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *BoardHandler) ListCourses(c *gin.Context) {
	courses := h.board.Courses(c.Request.Context())
	response.List(c, courses, len(courses))
}

// LoadCourses godoc
// @Summary Replace every course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.LoadCoursesRequest true "Courses"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [put]
func (h *BoardHandler) LoadCourses(c *gin.Context) {
	var req dto.LoadCoursesRequest
	if err := bindJSON(c, &req, "courses"); err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.board.LoadCourses(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// RemoveCourse godoc
// @Summary Delete a course and all its placements
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *BoardHandler) RemoveCourse(c *gin.Context) {
	removed, err := h.board.RemoveCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed})
}

// ListDuplicates godoc
// @Summary List course ids loaded more than once
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/duplicates [get]
func (h *BoardHandler) ListDuplicates(c *gin.Context) {
	duplicates := h.board.Duplicates(c.Request.Context())
	response.List(c, duplicates, len(duplicates))
}

// ResolveDuplicate godoc
// @Summary Keep one record of a duplicated course id
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.ResolveDuplicateRequest true "Record index to keep"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/resolve [post]
func (h *BoardHandler) ResolveDuplicate(c *gin.Context) {
	var req dto.ResolveDuplicateRequest
	if err := bindJSON(c, &req, "duplicate resolution"); err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.board.ResolveDuplicate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course)
}

// LoadUnavailability godoc
// @Summary Replace every instructor unavailability entry
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.LoadUnavailabilityRequest true "Entries"
// @Success 200 {object} response.Envelope
// @Router /unavailability [put]
func (h *BoardHandler) LoadUnavailability(c *gin.Context) {
	var req dto.LoadUnavailabilityRequest
	if err := bindJSON(c, &req, "unavailability"); err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.board.LoadUnavailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// BlockedDays godoc
// @Summary Days an instructor is unavailable at an event
// @Tags Catalog
// @Produce json
// @Param id path string true "Event ID"
// @Param instructor query string true "Instructor name"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/blocked-days [get]
func (h *BoardHandler) BlockedDays(c *gin.Context) {
	instructor := strings.TrimSpace(c.Query("instructor"))
	if instructor == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "instructor is required"))
		return
	}
	days, err := h.board.BlockedDays(c.Request.Context(), instructor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if days == nil {
		days = []int{}
	}
	response.JSON(c, http.StatusOK, gin.H{"instructor": instructor, "days": days})
}

// ChangeRoomCount godoc
// @Summary Change the room count of an event
// @Description Reductions that would unplace courses are refused with CONFIRMATION_REQUIRED unless confirm is set.
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.RoomCountRequest true "Room count"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/rooms [put]
func (h *BoardHandler) ChangeRoomCount(c *gin.Context) {
	var req dto.RoomCountRequest
	if err := bindJSON(c, &req, "room count"); err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.board.ChangeRoomCount(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// ListPlacements godoc
// @Summary List placements
// @Tags Placements
// @Produce json
// @Param eventId query string false "Event ID"
// @Success 200 {object} response.Envelope
// @Router /placements [get]
func (h *BoardHandler) ListPlacements(c *gin.Context) {
	placements := h.board.Placements(c.Request.Context(), c.Query("eventId"))
	response.List(c, placements, len(placements))
}

// CheckPlacement godoc
// @Summary Validate a proposed placement without committing it
// @Tags Placements
// @Accept json
// @Produce json
// @Param payload body dto.PlacementRequest true "Proposal"
// @Success 200 {object} response.Envelope
// @Router /placements/check [post]
func (h *BoardHandler) CheckPlacement(c *gin.Context) {
	var req dto.PlacementRequest
	if err := bindJSON(c, &req, "placement"); err != nil {
		response.Error(c, err)
		return
	}
	outcome, err := h.board.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome)
}

// Place godoc
// @Summary Place a course in a room and day range
// @Tags Placements
// @Accept json
// @Produce json
// @Param payload body dto.PlacementRequest true "Proposal"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /placements [post]
func (h *BoardHandler) Place(c *gin.Context) {
	var req dto.PlacementRequest
	if err := bindJSON(c, &req, "placement"); err != nil {
		response.Error(c, err)
		return
	}
	outcome, err := h.board.Place(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome)
}

// Assign godoc
// @Summary Offer a course at an event without placing it
// @Tags Placements
// @Accept json
// @Produce json
// @Param payload body dto.AssignRequest true "Assignment"
// @Success 204
// @Router /placements/assign [post]
func (h *BoardHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if err := bindJSON(c, &req, "assignment"); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.board.Assign(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Finalize godoc
// @Summary Promote a draft placement to committed
// @Tags Placements
// @Produce json
// @Param eventId path string true "Event ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /placements/{eventId}/{courseId}/finalize [post]
func (h *BoardHandler) Finalize(c *gin.Context) {
	outcome, err := h.board.Finalize(c.Request.Context(), c.Param("eventId"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome)
}

// Unplace godoc
// @Summary Clear room and days of a placement, keeping the assignment
// @Tags Placements
// @Param eventId path string true "Event ID"
// @Param courseId path string true "Course ID"
// @Success 204
// @Router /placements/{eventId}/{courseId}/unplace [post]
func (h *BoardHandler) Unplace(c *gin.Context) {
	if err := h.board.Unplace(c.Request.Context(), c.Param("eventId"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Remove godoc
// @Summary Remove a placement and its assignment
// @Tags Placements
// @Param eventId path string true "Event ID"
// @Param courseId path string true "Course ID"
// @Success 204
// @Router /placements/{eventId}/{courseId} [delete]
func (h *BoardHandler) Remove(c *gin.Context) {
	if err := h.board.Remove(c.Request.Context(), c.Param("eventId"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ImportPlacements godoc
// @Summary Replace every placement from exported rows
// @Tags Placements
// @Accept json
// @Produce json
// @Param payload body dto.ImportPlacementsRequest true "Rows"
// @Success 200 {object} response.Envelope
// @Router /placements [put]
func (h *BoardHandler) ImportPlacements(c *gin.Context) {
	var req dto.ImportPlacementsRequest
	if err := bindJSON(c, &req, "placements"); err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.board.ImportPlacements(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Conflicts godoc
// @Summary Placements colliding with instructor unavailability
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/conflicts [get]
func (h *BoardHandler) Conflicts(c *gin.Context) {
	rows := h.board.ConflictReport(c.Request.Context())
	response.List(c, rows, len(rows))
}

// Occupancy godoc
// @Summary Room-day occupancy and fill rate of an event
// @Tags Reports
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/occupancy [get]
func (h *BoardHandler) Occupancy(c *gin.Context) {
	report, cacheHit, err := h.board.Occupancy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, report, middleware.ResponseMeta(c))
}

// Status godoc
// @Summary Board size, consistency and persistence health
// @Tags Board
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /board/status [get]
func (h *BoardHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.board.Status(c.Request.Context()))
}

// Rebuild godoc
// @Summary Regenerate derived indices from source records
// @Tags Board
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /board/rebuild [post]
func (h *BoardHandler) Rebuild(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.board.Rebuild(c.Request.Context()))
}
