package termview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"agendaconsole/internal/branding"
	"agendaconsole/internal/calendar"
	"agendaconsole/internal/model"
)

func TestRenderShowsVisibleAndHidden(t *testing.T) {
	loc := time.UTC
	var items []model.CalendarAppointment
	for i, h := range []string{"09", "10", "11", "12", "13"} {
		id := int64(i + 1)
		items = append(items, model.CalendarAppointment{ID: &id, StartAt: "2026-02-14 " + h + ":00", Title: "Corte"})
	}
	m := calendar.BuildMonth(time.Date(2026, 2, 1, 0, 0, 0, 0, loc), items, calendar.Options{Location: loc})
	brand := "Barbearia do Zé"
	theme := branding.Apply(&model.Settings{BrandName: &brand, PrimaryColor: strPtr("#111827")})

	out := Render(m, theme, 14)
	assert.Contains(t, out, "Barbearia do Zé · fevereiro de 2026")
	assert.Contains(t, out, "09:00 Corte")
	assert.Contains(t, out, "11:00 Corte")
	assert.NotContains(t, out, "12:00 Corte")
	assert.Contains(t, out, "+2")
	assert.Contains(t, out, "Dom")
	assert.Contains(t, out, "28")
}

func TestRenderFlagsUnscheduled(t *testing.T) {
	m := calendar.BuildMonth(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		[]model.CalendarAppointment{{StartAt: "", Title: "x"}}, calendar.Options{Location: time.UTC})
	out := Render(m, branding.Theme{}, 0)
	assert.Contains(t, out, "1 agendamento(s) sem data válida")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
	assert.Equal(t, 4, len([]rune(truncate("ééééééé", 4))))
	assert.False(t, strings.HasSuffix(truncate("ok", 2), "…"))
}

func strPtr(s string) *string { return &s }
