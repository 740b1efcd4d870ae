package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evenlyhq/evenly/internal/middleware"
	"github.com/evenlyhq/evenly/internal/models"
	"github.com/evenlyhq/evenly/internal/money"
)

type balanceResponse struct {
	Balance money.Money `json:"balance"`
}

func (s *Server) myBalance(c *gin.Context) {
	balance, err := s.engine.PersonBalance(c.Request.Context(), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{Balance: balance})
}

// pairwiseBalance reports the net between the viewer and one person,
// positive when the person owes the viewer.
func (s *Server) pairwiseBalance(c *gin.Context) {
	balance, err := s.engine.PairwiseBalance(c.Request.Context(), middleware.Viewer(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{Balance: balance})
}

func (s *Server) groupBalance(c *gin.Context) {
	balance, err := s.engine.GroupBalance(c.Request.Context(), c.Param("id"), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{Balance: balance})
}

func (s *Server) memberBalances(c *gin.Context) {
	balances, err := s.engine.MemberBalances(c.Request.Context(), c.Param("id"), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": toMemberBalanceResponses(balances)})
}

func (s *Server) groupDebtors(c *gin.Context) {
	balances, err := s.engine.MembersWhoOweViewer(c.Request.Context(), c.Param("id"), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": toMemberBalanceResponses(balances)})
}

func (s *Server) personFeed(c *gin.Context) {
	groups, err := s.engine.BuildFeed(c.Request.Context(), models.PersonScope(c.Param("id")), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": toFeedResponse(groups)})
}

func (s *Server) groupFeed(c *gin.Context) {
	groups, err := s.engine.BuildFeed(c.Request.Context(), models.GroupScope(c.Param("id")), middleware.Viewer(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": toFeedResponse(groups)})
}
