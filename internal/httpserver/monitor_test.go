package httpserver

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/capture"
	"github.com/tphakala/eyedrop-checker/internal/monitor"
	"github.com/tphakala/eyedrop-checker/internal/motion"
)

func newTestMonitor() *monitor.Monitor {
	frame := motion.Frame{Width: 4, Height: 4, Channels: motion.RGB, Pix: bytes.Repeat([]byte{100}, 4*4*3)}
	session := monitor.NewSession(monitor.SessionConfig{
		Detector: motion.DefaultDetectorConfig(),
		Location: time.UTC,
	})
	return monitor.NewMonitor(session, capture.NewSequenceSource(frame), time.Hour, nil)
}

func TestMonitorStartStatusStop(t *testing.T) {
	mon := newTestMonitor()
	env := newTestEnv(t, func(d *Deps) { d.Monitor = mon })
	t.Cleanup(mon.Stop)

	rec := env.do(t, http.MethodPost, "/api/v1/monitor/start", map[string]bool{"testMode": true})
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[monitor.Status](t, rec)
	assert.True(t, status.Active)
	assert.True(t, status.TestMode)
	assert.Equal(t, "armed", status.TimerState)

	rec = env.do(t, http.MethodPost, "/api/v1/monitor/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/monitor/visibility", map[string]bool{"hidden": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[monitor.Status](t, rec).Hidden)

	rec = env.do(t, http.MethodGet, "/api/v1/monitor/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"motionCount":0`)

	rec = env.do(t, http.MethodPost, "/api/v1/monitor/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status = decode[monitor.Status](t, rec)
	assert.False(t, status.Active)
	assert.Equal(t, "idle", status.TimerState)
}
