package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type familyRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

func (s *Server) listFamily(c echo.Context) error {
	if s.deps.Family == nil {
		return s.unavailable(c, "family")
	}
	members, err := s.deps.Family.ListMembers(c.Request().Context(), s.deps.Owner)
	if err != nil {
		return s.fail(c, err, "failed to list family members")
	}
	if members == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, members)
}

func (s *Server) addFamily(c echo.Context) error {
	if s.deps.Family == nil {
		return s.unavailable(c, "family")
	}
	var req familyRequest
	if err := c.Bind(&req); err != nil {
		return s.badRequest(c, "invalid family member")
	}
	member, err := s.deps.Family.AddMember(c.Request().Context(), s.deps.Owner, req.Address, req.Name)
	if err != nil {
		return s.fail(c, err, "failed to add family member")
	}
	return c.JSON(http.StatusCreated, member)
}

func (s *Server) removeFamily(c echo.Context) error {
	if s.deps.Family == nil {
		return s.unavailable(c, "family")
	}
	if err := s.deps.Family.RemoveMember(c.Request().Context(), s.deps.Owner, c.Param("id")); err != nil {
		return s.fail(c, err, "failed to remove family member")
	}
	return c.NoContent(http.StatusNoContent)
}
