package i18n

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestNewPrinterMatchesLocale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		locale string
		want   language.Tag
	}{
		{"", language.English},
		{"en-US", language.English},
		{"ja", language.Japanese},
		{"ja-JP", language.Japanese},
		{"fi", language.English},
		{"not a locale", language.English},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			t.Parallel()
			base, _ := NewPrinter(tt.locale).Language().Base()
			want, _ := tt.want.Base()
			assert.Equal(t, want, base)
		})
	}
}

func TestJapaneseReminderTexts(t *testing.T) {
	t.Parallel()

	p := NewPrinter("ja")
	assert.Equal(t, "目薬の時間です", p.Sprintf(KeyReminderTitle))
	assert.Equal(t, "朝の目薬を忘れずに。", p.Sprintf(KeyReminderBody, p.SlotLabel("morning")))
	assert.Equal(t, "通知から開きました（夜）", p.Sprintf(KeyOpenedBanner, p.SlotLabel("night")))
	assert.Equal(t, "昼を「済」にする", p.Sprintf(KeyMarkDone, p.SlotLabel("noon")))
	assert.Equal(t, "テスト通知", p.Sprintf(KeyTestTitle))
}

func TestEnglishFallback(t *testing.T) {
	t.Parallel()

	p := NewPrinter("en")
	assert.Equal(t, "Eyedrop time", p.Sprintf(KeyReminderTitle))
	assert.Equal(t, "Don't forget your Noon eyedrops.", p.Sprintf(KeyReminderBody, p.SlotLabel("noon")))
	assert.Equal(t, "evening", p.SlotLabel("evening"))
	assert.Equal(t, "No eyedrop motion was detected within 5m0s on 2026-10-15.",
		p.Sprintf(KeyEscalation, "5m0s", "2026-10-15"))
}

func TestDuration(t *testing.T) {
	t.Parallel()

	en := NewPrinter("en")
	ja := NewPrinter("ja")

	assert.Equal(t, "30 sec", en.Duration(30*time.Second))
	assert.Equal(t, "5 min", en.Duration(5*time.Minute))
	assert.Equal(t, "1 min 30 sec", en.Duration(90*time.Second))
	assert.Equal(t, "30秒", ja.Duration(30*time.Second))
	assert.Equal(t, "5分", ja.Duration(5*time.Minute))
	assert.Equal(t, "1分30秒", ja.Duration(90*time.Second))
}
