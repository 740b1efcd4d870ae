package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evenlyhq/evenly/internal/engine"
	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
)

type createExpenseRequest struct {
	Title   string           `json:"title" binding:"required"`
	Amount  money.Money      `json:"amount"`
	Date    time.Time        `json:"date"`
	Method  splitMethodBody  `json:"method" binding:"required"`
	GroupID string           `json:"group_id"`
	Payers  []payerShareBody `json:"payers" binding:"required"`
}

func (s *Server) createExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	method, err := req.Method.toMethod()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	payers := make([]models.PayerShare, len(req.Payers))
	for i, p := range req.Payers {
		payers[i] = models.PayerShare{PersonID: p.PersonID, AmountPaid: p.Amount}
	}

	expense, err := s.engine.AddExpense(c.Request.Context(), engine.ExpenseInput{
		Title:   req.Title,
		Amount:  req.Amount,
		Date:    req.Date,
		Method:  method,
		GroupID: req.GroupID,
		Payers:  payers,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) deleteExpense(c *gin.Context) {
	if err := s.engine.DeleteExpense(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
