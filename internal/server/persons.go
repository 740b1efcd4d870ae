package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evenlyhq/evenly/internal/models"
)

type createPersonRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	ColorTag    string `json:"color_tag"`
}

func (s *Server) createPerson(c *gin.Context) {
	var req createPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	person := &models.Person{
		DisplayName: req.DisplayName,
		ColorTag:    req.ColorTag,
	}
	if err := s.store.CreatePerson(c.Request.Context(), person); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPersonResponse(person))
}

func (s *Server) getPerson(c *gin.Context) {
	person, err := s.store.GetPerson(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPersonResponse(person))
}

func (s *Server) archivePerson(c *gin.Context) {
	if err := s.store.ArchivePerson(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}

type createGroupRequest struct {
	Name      string   `json:"name" binding:"required"`
	ColorTag  string   `json:"color_tag"`
	MemberIDs []string `json:"member_ids"`
}

func (s *Server) createGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	group := &models.Group{
		Name:      req.Name,
		ColorTag:  req.ColorTag,
		MemberIDs: req.MemberIDs,
	}
	if err := s.store.CreateGroup(c.Request.Context(), group); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toGroupResponse(group))
}

func (s *Server) getGroup(c *gin.Context) {
	group, err := s.store.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toGroupResponse(group))
}

type addMembersRequest struct {
	MemberIDs []string `json:"member_ids" binding:"required"`
}

func (s *Server) addGroupMembers(c *gin.Context) {
	var req addMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	groupID := c.Param("id")
	if err := s.store.AddGroupMembers(c.Request.Context(), groupID, req.MemberIDs); err != nil {
		fail(c, err)
		return
	}
	group, err := s.store.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toGroupResponse(group))
}
