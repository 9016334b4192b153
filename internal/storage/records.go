package storage

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/model"
)

// Storage keys of the two documents.
const (
	RecordsKey  = "eyedrop-checker:v1"
	SettingsKey = "eyedrop-checker:settings"
)

// Records is the typed repository for day records and reminder settings.
//
// Each mutation is a read-modify-write of a whole document. The mutex serializes
// writers inside this process only; concurrent writers in other processes sharing
// the same store are last-write-wins.
type Records struct {
	kv        KeyValue
	namespace string
	mu        sync.Mutex
}

// NewRecords creates a repository over kv. A non-empty namespace prefixes both
// keys with "<namespace>:".
func NewRecords(kv KeyValue, namespace string) *Records {
	return &Records{kv: kv, namespace: namespace}
}

func (r *Records) key(base string) string {
	if r.namespace == "" {
		return base
	}
	return r.namespace + ":" + base
}

func (r *Records) loadDays(ctx context.Context) (map[string]model.DailyRecord, error) {
	days := make(map[string]model.DailyRecord)
	raw, found, err := r.kv.Get(ctx, r.key(RecordsKey))
	if err != nil {
		return nil, persistenceError(err, "load-records")
	}
	if !found || len(raw) == 0 {
		return days, nil
	}
	if err := json.Unmarshal(raw, &days); err != nil {
		// A corrupt document reads as empty.
		GetLogger().Warn("discarding unreadable day records", logger.Error(err))
		return make(map[string]model.DailyRecord), nil
	}
	return days, nil
}

func (r *Records) saveDays(ctx context.Context, days map[string]model.DailyRecord) error {
	raw, err := json.Marshal(days)
	if err != nil {
		return persistenceError(err, "encode-records")
	}
	if err := r.kv.Set(ctx, r.key(RecordsKey), raw); err != nil {
		return persistenceError(err, "save-records")
	}
	return nil
}

// Day returns the record for date; a missing date reads as all slots pending.
func (r *Records) Day(ctx context.Context, date string) (model.DailyRecord, error) {
	days, err := r.loadDays(ctx)
	if err != nil {
		return model.DailyRecord{}, err
	}
	return days[date], nil
}

// SaveDay replaces the record for date.
func (r *Records) SaveDay(ctx context.Context, date string, rec model.DailyRecord) error {
	return r.updateDay(ctx, date, func(d *model.DailyRecord) { *d = rec })
}

// ToggleSlot flips slot on date and returns the updated record.
func (r *Records) ToggleSlot(ctx context.Context, date string, slot model.Slot) (model.DailyRecord, error) {
	var out model.DailyRecord
	err := r.updateDay(ctx, date, func(d *model.DailyRecord) {
		d.Set(slot, !d.Done(slot))
		out = *d
	})
	return out, err
}

// SetSlot sets slot on date to done and returns the updated record.
func (r *Records) SetSlot(ctx context.Context, date string, slot model.Slot, done bool) (model.DailyRecord, error) {
	var out model.DailyRecord
	err := r.updateDay(ctx, date, func(d *model.DailyRecord) {
		d.Set(slot, done)
		out = *d
	})
	return out, err
}

// SetNote replaces the note on date.
func (r *Records) SetNote(ctx context.Context, date, note string) (model.DailyRecord, error) {
	var out model.DailyRecord
	err := r.updateDay(ctx, date, func(d *model.DailyRecord) {
		d.Note = note
		out = *d
	})
	return out, err
}

// ResetDay re-initializes date to all slots pending with an empty note.
func (r *Records) ResetDay(ctx context.Context, date string) error {
	return r.updateDay(ctx, date, func(d *model.DailyRecord) { *d = model.DailyRecord{} })
}

func (r *Records) updateDay(ctx context.Context, date string, fn func(*model.DailyRecord)) error {
	if _, err := time.Parse(model.DateKeyLayout, date); err != nil {
		return errors.Newf("invalid date key %q", date).
			Component("storage").
			Category(errors.CategoryValidation).
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	days, err := r.loadDays(ctx)
	if err != nil {
		return err
	}
	rec := days[date]
	fn(&rec)
	days[date] = rec
	return r.saveDays(ctx, days)
}

// History returns up to n stored days, most recent first.
func (r *Records) History(ctx context.Context, n int) ([]model.DayProgress, error) {
	days, err := r.loadDays(ctx)
	if err != nil {
		return nil, err
	}
	dates := slices.Sorted(maps.Keys(days))
	slices.Reverse(dates)
	if n > 0 && len(dates) > n {
		dates = dates[:n]
	}
	out := make([]model.DayProgress, 0, len(dates))
	for _, d := range dates {
		rec := days[d]
		out = append(out, model.DayProgress{Date: d, Record: rec, Progress: rec.Progress()})
	}
	return out, nil
}

// Weekly returns the progress of the n days ending on today, oldest first.
// Days without a stored record report 0%.
func (r *Records) Weekly(ctx context.Context, today time.Time, n int) ([]model.DayProgress, error) {
	days, err := r.loadDays(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.DayProgress, n)
	for i := range n {
		d := today.AddDate(0, 0, -(n - 1 - i)).Format(model.DateKeyLayout)
		rec := days[d]
		out[i] = model.DayProgress{Date: d, Record: rec, Progress: rec.Progress()}
	}
	return out, nil
}

// Settings returns the stored reminder settings, or the defaults when none are stored.
func (r *Records) Settings(ctx context.Context) (model.Settings, error) {
	raw, found, err := r.kv.Get(ctx, r.key(SettingsKey))
	if err != nil {
		return model.Settings{}, persistenceError(err, "load-settings")
	}
	if !found || len(raw) == 0 {
		return model.DefaultSettings(), nil
	}
	var s model.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		GetLogger().Warn("discarding unreadable settings", logger.Error(err))
		return model.DefaultSettings(), nil
	}
	if s.Times == nil {
		s.Times = model.DefaultSettings().Times
	}
	return s, nil
}

// SaveSettings replaces the stored settings.
func (r *Records) SaveSettings(ctx context.Context, s model.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveSettingsLocked(ctx, s)
}

func (r *Records) saveSettingsLocked(ctx context.Context, s model.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return persistenceError(err, "encode-settings")
	}
	if err := r.kv.Set(ctx, r.key(SettingsKey), raw); err != nil {
		return persistenceError(err, "save-settings")
	}
	return nil
}

// SeedSettings stores s only when no settings document exists yet and reports
// whether it did.
func (r *Records) SeedSettings(ctx context.Context, s model.Settings) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, found, err := r.kv.Get(ctx, r.key(SettingsKey))
	if err != nil {
		return false, persistenceError(err, "load-settings")
	}
	if found {
		return false, nil
	}
	if err := r.saveSettingsLocked(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateSettings applies fn to the current settings and stores the result.
func (r *Records) UpdateSettings(ctx context.Context, fn func(*model.Settings)) (model.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.Settings(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	s = s.Clone()
	fn(&s)
	return s, r.saveSettingsLocked(ctx, s)
}

// MarkNotified re-reads the current settings and records slot as notified on date,
// so edits made since the caller last read settings are kept.
func (r *Records) MarkNotified(ctx context.Context, slot model.Slot, date string) error {
	_, err := r.UpdateSettings(ctx, func(s *model.Settings) {
		*s = s.WithNotified(slot, date)
	})
	return err
}

func persistenceError(err error, op string) error {
	return errors.New(err).
		Component("storage").
		Category(errors.CategoryStorage).
		Context("operation", op).
		Build()
}
