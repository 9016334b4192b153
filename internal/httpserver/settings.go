package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/eyedrop-checker/internal/conf"
	"github.com/tphakala/eyedrop-checker/internal/model"
)

// SettingsRequest updates reminder settings. Omitted fields keep their value;
// a slot time set to "" disables that slot.
type SettingsRequest struct {
	Notifications *bool             `json:"notifications"`
	Times         map[string]string `json:"times"`
}

func (s *Server) getSettings(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	settings, err := s.deps.Records.Settings(c.Request().Context())
	if err != nil {
		return s.fail(c, err, "failed to load settings")
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) putSettings(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return s.badRequest(c, "invalid settings")
	}

	times := make(map[model.Slot]string, len(req.Times))
	for name, expr := range req.Times {
		slot, err := model.ParseSlot(name)
		if err != nil {
			return s.badRequest(c, err.Error())
		}
		if expr != "" && !conf.ValidSlotTime(expr) {
			return s.badRequest(c, "time for "+name+" must be HH:MM or a sun event such as sunrise+30m")
		}
		times[slot] = expr
	}

	settings, err := s.deps.Records.UpdateSettings(c.Request().Context(), func(st *model.Settings) {
		if req.Notifications != nil {
			st.NotificationsEnabled = *req.Notifications
		}
		for slot, expr := range times {
			st.Times[slot] = expr
		}
	})
	if err != nil {
		return s.fail(c, err, "failed to save settings")
	}
	return c.JSON(http.StatusOK, settings)
}
