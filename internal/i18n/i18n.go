// Package i18n holds the user-facing notification texts in English and Japanese.
package i18n

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	KeyReminderTitle   = "Eyedrop time"
	KeyReminderBody    = "Don't forget your %s eyedrops."
	KeyTestTitle       = "Test notification"
	KeyTestBody        = "This is an eyedrop checker test."
	KeyOpenedBanner    = "Opened from notification (%s)"
	KeyMarkDone        = "Mark %s as done"
	KeyCameraTitle     = "No eyedrop motion detected"
	KeyEscalation      = "No eyedrop motion was detected within %s on %s."
	KeyFamilyTitle     = "Message from family"
	KeyPermissionBlock = "Notifications are not permitted."
	KeyMinutes         = "%d min"
	KeySeconds         = "%d sec"
	KeyMinutesSeconds  = "%d min %d sec"
	KeySlotMorning     = "morning"
	KeySlotNoon        = "noon"
	KeySlotNight       = "night"
)

var supported = []language.Tag{language.English, language.Japanese}

var matcher = language.NewMatcher(supported)

var texts = map[language.Tag]map[string]string{
	language.English: {
		KeySlotMorning: "Morning",
		KeySlotNoon:    "Noon",
		KeySlotNight:   "Night",
	},
	language.Japanese: {
		KeyReminderTitle:   "目薬の時間です",
		KeyReminderBody:    "%sの目薬を忘れずに。",
		KeyTestTitle:       "テスト通知",
		KeyTestBody:        "目薬チェックのテストです",
		KeyOpenedBanner:    "通知から開きました（%s）",
		KeyMarkDone:        "%sを「済」にする",
		KeyCameraTitle:     "目薬の動作が検出されません",
		KeyEscalation:      "%s以内に目薬の動作が検出されませんでした（%s）。",
		KeyFamilyTitle:     "家族からの通知",
		KeyPermissionBlock: "通知が許可されていません。",
		KeyMinutes:         "%d分",
		KeySeconds:         "%d秒",
		KeyMinutesSeconds:  "%d分%d秒",
		KeySlotMorning:     "朝",
		KeySlotNoon:        "昼",
		KeySlotNight:       "夜",
	},
}

var cat = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range texts {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Printer renders messages for one locale.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// NewPrinter returns a printer for the closest supported match of locale.
// Unknown or empty locales fall back to English.
func NewPrinter(locale string) *Printer {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, idx, _ := matcher.Match(parsed)
			tag = supported[idx]
		}
	}
	return &Printer{tag: tag, p: message.NewPrinter(tag, message.Catalog(cat))}
}

// Language returns the resolved language tag.
func (p *Printer) Language() language.Tag { return p.tag }

// Sprintf formats the message registered under key.
func (p *Printer) Sprintf(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

// SlotLabel returns the display label for a slot name.
func (p *Printer) SlotLabel(slot string) string {
	switch slot {
	case KeySlotMorning, KeySlotNoon, KeySlotNight:
		return p.p.Sprintf(slot)
	}
	return slot
}

// Duration renders d in whole minutes and seconds, e.g. "5 min" or "1分30秒".
func (p *Printer) Duration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	minutes, seconds := total/60, total%60
	switch {
	case minutes == 0:
		return p.p.Sprintf(KeySeconds, seconds)
	case seconds == 0:
		return p.p.Sprintf(KeyMinutes, minutes)
	default:
		return p.p.Sprintf(KeyMinutesSeconds, minutes, seconds)
	}
}
