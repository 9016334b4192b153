package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives every built error while reporting is active
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// ErrorHook is called synchronously for every built error
type ErrorHook func(ee *EnhancedError)

var (
	reportingMu       sync.RWMutex
	telemetryReporter TelemetryReporter
	errorHooks        []ErrorHook
)

// SetTelemetryReporter installs the global reporter. nil disables telemetry.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reportingMu.Lock()
	defer reportingMu.Unlock()
	telemetryReporter = reporter
	updateActiveReportingLocked()
}

// AddErrorHook registers a hook called for every built error.
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	reportingMu.Lock()
	defer reportingMu.Unlock()
	errorHooks = append(errorHooks, hook)
	updateActiveReportingLocked()
}

// ClearErrorHooks removes all registered hooks.
func ClearErrorHooks() {
	reportingMu.Lock()
	defer reportingMu.Unlock()
	errorHooks = nil
	updateActiveReportingLocked()
}

func updateActiveReportingLocked() {
	active := len(errorHooks) > 0 || (telemetryReporter != nil && telemetryReporter.IsEnabled())
	hasActiveReporting.Store(active)
}

func report(ee *EnhancedError) {
	reportingMu.RLock()
	reporter := telemetryReporter
	hooks := errorHooks
	reportingMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

// SentryReporter forwards errors to Sentry with query strings and tokens scrubbed
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError captures ee as a Sentry event grouped by component and category.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := ScrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	title := errorTitle(ee)
	level := sentryLevel(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		if ee.Priority != "" {
			scope.SetTag("priority", ee.Priority)
		}
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = ScrubMessage(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, ee.Component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

func errorTitle(ee *EnhancedError) string {
	parts := make([]string, 0, 2)
	if ee.Component != "" && ee.Component != ComponentUnknown {
		parts = append(parts, titleCase(ee.Component))
	}
	parts = append(parts, titleCase(strings.ReplaceAll(string(ee.Category), "-", " "))+" Error")
	return strings.Join(parts, " ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func sentryLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNetwork, CategoryHTTP, CategoryMQTTConnection, CategoryMQTTPublish,
		CategoryNotification, CategoryCapture, CategoryTimeout:
		return sentry.LevelWarning
	case CategoryNotFound, CategoryCancellation, CategoryPermission:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}

var (
	urlQueryPattern = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	credentialURL   = regexp.MustCompile(`([a-z][a-z0-9+.-]*://)[^/@\s]+@`)
	secretPatterns  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)api[_-]?key[=:]\S+`),
		regexp.MustCompile(`(?i)token[=:]\S+`),
		regexp.MustCompile(`(?i)password[=:]\S+`),
		regexp.MustCompile(`[0-9a-fA-F]{32,}`),
	}
)

// ScrubMessage removes query strings, URL credentials and token-like values
// from s before it leaves the process.
func ScrubMessage(s string) string {
	s = urlQueryPattern.ReplaceAllString(s, "$1?[REDACTED]")
	s = credentialURL.ReplaceAllString(s, "$1[REDACTED]@")
	for _, re := range secretPatterns {
		s = re.ReplaceAllString(s, "[SECRET_REDACTED]")
	}
	return s
}
