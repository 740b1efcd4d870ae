package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evenlyhq/evenly/internal/middleware"
	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
)

type createSettlementRequest struct {
	ToPersonID string      `json:"to_person_id" binding:"required"`
	Amount     money.Money `json:"amount"`
	GroupID    string      `json:"group_id"`
	Note       string      `json:"note"`

	// Full requests a settlement sized to zero out the pair; Amount is
	// ignored when set.
	Full bool `json:"full"`
}

func (s *Server) createSettlement(c *gin.Context) {
	var req createSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	viewer := middleware.Viewer(c)
	var (
		settlement *models.Settlement
		err        error
	)
	if req.Full {
		settlement, err = s.engine.SettleFully(c.Request.Context(), viewer, req.ToPersonID, req.GroupID, req.Note)
	} else {
		settlement, err = s.engine.Settle(c.Request.Context(), viewer, req.ToPersonID, req.Amount, req.GroupID, req.Note)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSettlementResponse(settlement))
}

func (s *Server) undoSettlement(c *gin.Context) {
	reversal, err := s.engine.UndoSettlement(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSettlementResponse(reversal))
}

type createReminderRequest struct {
	ToPersonID string `json:"to_person_id" binding:"required"`
	GroupID    string `json:"group_id"`
}

func (s *Server) createReminder(c *gin.Context) {
	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	reminder, err := s.engine.Remind(c.Request.Context(), req.ToPersonID, middleware.Viewer(c), req.GroupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReminderResponse(reminder))
}

func (s *Server) markReminderRead(c *gin.Context) {
	if err := s.engine.MarkReminderRead(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

type postMessageRequest struct {
	PersonID string `json:"person_id"`
	GroupID  string `json:"group_id"`
	Content  string `json:"content" binding:"required"`
}

func (s *Server) postMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	var scope models.Scope
	switch {
	case req.PersonID != "" && req.GroupID == "":
		scope = models.PersonScope(req.PersonID)
	case req.GroupID != "" && req.PersonID == "":
		scope = models.GroupScope(req.GroupID)
	default:
		badRequest(c, "exactly one of person_id or group_id is required")
		return
	}

	msg, err := s.engine.PostMessage(c.Request.Context(), middleware.Viewer(c), scope, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMessageResponse(msg))
}
