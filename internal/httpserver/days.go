package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/eyedrop-checker/internal/model"
)

// DefaultHistoryLimit is the number of days /history returns without a limit.
const DefaultHistoryLimit = 7

// DayResponse is one day's record with its date and progress.
type DayResponse = model.DayProgress

func dayResponse(date string, rec model.DailyRecord) DayResponse {
	return DayResponse{Date: date, Record: rec, Progress: rec.Progress()}
}

// dateParam returns the :date parameter, accepting "today" as an alias.
func (s *Server) dateParam(c echo.Context) (string, bool) {
	date := c.Param("date")
	if date == "today" {
		return s.today(), true
	}
	if _, err := time.Parse(model.DateKeyLayout, date); err != nil {
		return "", false
	}
	return date, true
}

func (s *Server) getToday(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	date := s.today()
	rec, err := s.deps.Records.Day(c.Request().Context(), date)
	if err != nil {
		return s.fail(c, err, "failed to load day")
	}
	return c.JSON(http.StatusOK, dayResponse(date, rec))
}

func (s *Server) getDay(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	date, ok := s.dateParam(c)
	if !ok {
		return s.badRequest(c, "date must be YYYY-MM-DD")
	}
	rec, err := s.deps.Records.Day(c.Request().Context(), date)
	if err != nil {
		return s.fail(c, err, "failed to load day")
	}
	return c.JSON(http.StatusOK, dayResponse(date, rec))
}

func (s *Server) putDay(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	date, ok := s.dateParam(c)
	if !ok {
		return s.badRequest(c, "date must be YYYY-MM-DD")
	}
	var rec model.DailyRecord
	if err := c.Bind(&rec); err != nil {
		return s.badRequest(c, "invalid day record")
	}
	if err := s.deps.Records.SaveDay(c.Request().Context(), date, rec); err != nil {
		return s.fail(c, err, "failed to save day")
	}
	return c.JSON(http.StatusOK, dayResponse(date, rec))
}

func (s *Server) resetDay(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	date, ok := s.dateParam(c)
	if !ok {
		return s.badRequest(c, "date must be YYYY-MM-DD")
	}
	if err := s.deps.Records.ResetDay(c.Request().Context(), date); err != nil {
		return s.fail(c, err, "failed to reset day")
	}
	return c.JSON(http.StatusOK, dayResponse(date, model.DailyRecord{}))
}

func (s *Server) toggleSlot(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	date, ok := s.dateParam(c)
	if !ok {
		return s.badRequest(c, "date must be YYYY-MM-DD")
	}
	slot, err := model.ParseSlot(c.Param("slot"))
	if err != nil {
		return s.badRequest(c, err.Error())
	}
	rec, err := s.deps.Records.ToggleSlot(c.Request().Context(), date, slot)
	if err != nil {
		return s.fail(c, err, "failed to toggle slot")
	}
	return c.JSON(http.StatusOK, dayResponse(date, rec))
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *Server) putNote(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	date, ok := s.dateParam(c)
	if !ok {
		return s.badRequest(c, "date must be YYYY-MM-DD")
	}
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return s.badRequest(c, "invalid note")
	}
	rec, err := s.deps.Records.SetNote(c.Request().Context(), date, req.Note)
	if err != nil {
		return s.fail(c, err, "failed to save note")
	}
	return c.JSON(http.StatusOK, dayResponse(date, rec))
}

func (s *Server) getHistory(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	limit := DefaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return s.badRequest(c, "limit must be a positive integer")
		}
		limit = n
	}
	days, err := s.deps.Records.History(c.Request().Context(), limit)
	if err != nil {
		return s.fail(c, err, "failed to load history")
	}
	return c.JSON(http.StatusOK, days)
}

func (s *Server) getWeekly(c echo.Context) error {
	if s.deps.Records == nil {
		return s.unavailable(c, "storage")
	}
	today := s.deps.Now().In(s.deps.Location)
	days, err := s.deps.Records.Weekly(c.Request().Context(), today, 7)
	if err != nil {
		return s.fail(c, err, "failed to load weekly progress")
	}
	return c.JSON(http.StatusOK, days)
}
