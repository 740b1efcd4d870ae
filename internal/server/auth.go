package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evenlyhq/evenly/internal/middleware"
)

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token    string `json:"token"`
	PersonID string `json:"person_id"`
	Email    string `json:"email"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	account, err := s.identity.Register(c.Request.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	token, err := s.jwtManager.Generate(account)
	if err != nil {
		fail(c, err)
		return
	}

	slog.Info("account registered", "person_id", account.PersonID, "email", account.Email)
	c.JSON(http.StatusCreated, authResponse{
		Token:    token,
		PersonID: account.PersonID,
		Email:    account.Email,
	})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	account, err := s.identity.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	token, err := s.jwtManager.Generate(account)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Token:    token,
		PersonID: account.PersonID,
		Email:    account.Email,
	})
}

func (s *Server) getMe(c *gin.Context) {
	viewer := middleware.Viewer(c)
	person, err := s.store.GetPerson(c.Request.Context(), viewer)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPersonResponse(person))
}
