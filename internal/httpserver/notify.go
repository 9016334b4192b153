package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/model"
	"github.com/tphakala/eyedrop-checker/internal/notification"
)

// PresenceRequest updates the shell environment. Omitted fields keep their value.
type PresenceRequest struct {
	Permission *string `json:"permission"`
	Mobile     *bool   `json:"mobile"`
	Standalone *bool   `json:"standalone"`
	Foreground *bool   `json:"foreground"`
}

// AttemptResponse reports a dispatch outcome.
type AttemptResponse struct {
	notification.DeliveryAttempt
	Error string `json:"error,omitempty"`
}

// ConfirmResponse is returned when a banner's action is taken.
type ConfirmResponse struct {
	Banner notification.Banner `json:"banner"`
	Day    *DayResponse        `json:"day,omitempty"`
}

func (s *Server) getPresence(c echo.Context) error {
	if s.deps.Presence == nil {
		return s.unavailable(c, "presence")
	}
	return c.JSON(http.StatusOK, s.deps.Presence.Environment())
}

func (s *Server) putPresence(c echo.Context) error {
	if s.deps.Presence == nil {
		return s.unavailable(c, "presence")
	}
	var req PresenceRequest
	if err := c.Bind(&req); err != nil {
		return s.badRequest(c, "invalid presence")
	}
	env := s.deps.Presence.Update(func(e *notification.Environment) {
		if req.Permission != nil {
			e.Permission = notification.ParsePermission(*req.Permission)
		}
		if req.Mobile != nil {
			e.Mobile = *req.Mobile
		}
		if req.Standalone != nil {
			e.Standalone = *req.Standalone
		}
		if req.Foreground != nil {
			e.Foreground = *req.Foreground
		}
	})
	return c.JSON(http.StatusOK, env)
}

func (s *Server) sendTest(c echo.Context) error {
	if s.deps.Tester == nil {
		return s.unavailable(c, "notifications")
	}
	attempt := s.deps.Tester.SendTest(c.Request().Context(), s.deps.Now())
	return c.JSON(http.StatusOK, AttemptResponse{DeliveryAttempt: attempt, Error: attempt.ErrorText()})
}

func (s *Server) listBanners(c echo.Context) error {
	if s.deps.Banners == nil {
		return s.unavailable(c, "banners")
	}
	return c.JSON(http.StatusOK, s.deps.Banners.List())
}

// confirmBanner takes the banner's action: a banner about a slot marks that slot
// done for the banner's date. The banner is dismissed either way.
func (s *Server) confirmBanner(c echo.Context) error {
	if s.deps.Banners == nil {
		return s.unavailable(c, "banners")
	}
	id := c.Param("id")
	banner, ok := s.deps.Banners.Get(id)
	if !ok {
		return s.fail(c, errors.NotFound("http", "banner %s not found", id), "banner not found")
	}

	resp := ConfirmResponse{Banner: banner}
	if banner.Slot != "" && banner.Date != "" && s.deps.Records != nil {
		slot, err := model.ParseSlot(banner.Slot)
		if err != nil {
			return s.badRequest(c, err.Error())
		}
		rec, err := s.deps.Records.SetSlot(c.Request().Context(), banner.Date, slot, true)
		if err != nil {
			return s.fail(c, err, "failed to mark slot done")
		}
		day := dayResponse(banner.Date, rec)
		resp.Day = &day
	}
	s.deps.Banners.Dismiss(id)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) dismissBanner(c echo.Context) error {
	if s.deps.Banners == nil {
		return s.unavailable(c, "banners")
	}
	id := c.Param("id")
	if !s.deps.Banners.Dismiss(id) {
		return s.fail(c, errors.NotFound("http", "banner %s not found", id), "banner not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listNotices(c echo.Context) error {
	if s.deps.Surface == nil {
		return s.unavailable(c, "local notices")
	}
	return c.JSON(http.StatusOK, s.deps.Surface.Notices())
}

func (s *Server) noticeShown(c echo.Context) error {
	if s.deps.Surface == nil {
		return s.unavailable(c, "local notices")
	}
	n, err := s.deps.Surface.MarkShown(c.Param("id"))
	if err != nil {
		return s.fail(c, err, "notice not found")
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) noticeClick(c echo.Context) error {
	if s.deps.Surface == nil {
		return s.unavailable(c, "local notices")
	}
	n, err := s.deps.Surface.Click(c.Param("id"))
	if err != nil {
		return s.fail(c, err, "notice not found")
	}
	return c.JSON(http.StatusOK, n)
}
