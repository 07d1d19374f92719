package branding

import (
	"sort"
	"strings"

	"agendaconsole/internal/model"
)

// Theme is the value object produced from tenant settings. Callers decide
// how to apply it (CSS variables in a page head, terminal styles, ...).
type Theme struct {
	// Vars maps CSS custom property names (with leading "--") to colors.
	Vars       map[string]string `json:"vars"`
	Title      string            `json:"title,omitempty"`
	FaviconURL string            `json:"favicon_url,omitempty"`
	LogoURL    string            `json:"logo_url,omitempty"`
}

// Apply derives the theme for settings. A nil settings yields an empty
// theme. Colors that are not valid hex are skipped rather than passed through.
func Apply(s *model.Settings) Theme {
	t := Theme{Vars: map[string]string{}}
	if s == nil {
		return t
	}

	primary, hasPrimary := NormalizeHex(model.Str(s.PrimaryColor))
	if hasPrimary {
		t.setPair(primary, "--primary", "--sidebar-primary")
		t.setForeground(primary, "--primary-foreground", "--sidebar-primary-foreground")
	}

	secondary, hasSecondary := NormalizeHex(model.Str(s.SecondaryColor))
	if hasSecondary {
		t.setPair(secondary, "--secondary", "--sidebar-accent")
		t.setForeground(secondary, "--secondary-foreground", "--sidebar-accent-foreground")
	}

	// Accent follows the secondary color when one is configured at all,
	// otherwise the primary.
	accent, hasAccent := primary, hasPrimary
	if s.SecondaryColor != nil {
		accent, hasAccent = secondary, hasSecondary
	}
	if hasAccent {
		t.setPair(accent, "--accent")
		t.setForeground(accent, "--accent-foreground")
	}

	if name := strings.TrimSpace(model.Str(s.BrandName)); name != "" {
		t.Title = name
	}
	t.FaviconURL = strings.TrimSpace(model.Str(s.FaviconURL))
	t.LogoURL = strings.TrimSpace(model.Str(s.LogoURL))
	return t
}

func (t *Theme) setPair(color string, names ...string) {
	for _, n := range names {
		t.Vars[n] = color
	}
}

func (t *Theme) setForeground(background string, names ...string) {
	fg, ok := DeriveForeground(background)
	if !ok {
		return
	}
	t.setPair(fg, names...)
}

// CSS renders the variables as a deterministic ":root{...}" block. The
// values are normalized hex colors, so no escaping is needed.
func (t Theme) CSS() string {
	if len(t.Vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(t.Vars))
	for k := range t.Vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root{")
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(t.Vars[k])
		b.WriteByte(';')
	}
	b.WriteByte('}')
	return b.String()
}

// Var returns a variable or fallback when unset.
func (t Theme) Var(name, fallback string) string {
	if v, ok := t.Vars[name]; ok {
		return v
	}
	return fallback
}

// WithFallback fills the title and favicon when the tenant left them empty.
func (t Theme) WithFallback(title, favicon string) Theme {
	if t.Title == "" {
		t.Title = title
	}
	if t.FaviconURL == "" {
		t.FaviconURL = favicon
	}
	return t
}
