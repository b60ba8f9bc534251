package zmanim

import (
	"fmt"
	"strings"
	"time"
)

var labels = map[Zman]string{
	ZmanAlot:          "🌅 עלות השחר",
	ZmanNetz:          "☀️ הנץ החמה",
	ZmanSofZmanShema:  "📖 סוף זמן קש",
	ZmanSofZmanTefila: "🙏 סוף זמן תפילה",
	ZmanChatzot:       "🕛 חצות היום",
	ZmanMinchaGedola:  "🌇 מנחה גדולה",
	ZmanPlag:          "🌇 פלג המנחה",
	ZmanShkia:         "🌆 שקיעת החמה",
	ZmanTzet:          "🌃 צאת הכוכבים",
}

// dayLayout is the full-day message body. An empty id is a blank line.
var dayLayout = []struct {
	id    ID
	label string
}{
	{AlotHashachar, "🌅 עלות השחר"},
	{NetzHachama, "☀️ הנץ החמה"},
	{},
	{SofZmanShemaMA, `📖 סוף זמן ק"ש (מ"א)`},
	{SofZmanShemaGRA, `📖 סוף זמן ק"ש (גר"א)`},
	{},
	{SofZmanTefilaMA, `🙏 סוף זמן תפילה (מ"א)`},
	{SofZmanTefilaGRA, `🙏 סוף זמן תפילה (גר"א)`},
	{},
	{Chatzot, "🕛 חצות היום"},
	{},
	{MinchaGedola, "🌇 מנחה גדולה"},
	{PlagHamincha, "🌇 פלג המנחה"},
	{},
	{ShkiatHachama, "🌆 שקיעת החמה"},
	{},
	{TzetHakochavim18, "🌃 צאת הכוכבים (18 דק')"},
	{TzetHakochavimRT, `🌃 צאת הכוכבים (ר"ת)`},
}

// Formatter renders results as chat messages for one location.
type Formatter struct {
	Location Location
}

// Render returns the message answering q. An empty string means there is
// nothing to send.
func (f Formatter) Render(r Result, header string, q Query) string {
	switch q.Type {
	case QuerySpecific:
		return f.renderSpecific(r, header, q.Zman)
	case QueryAll:
		return f.renderAll(r, header)
	default:
		return ""
	}
}

func (f Formatter) renderSpecific(r Result, header string, z Zman) string {
	t, ok := r.Get(z.ResultID())
	if !ok {
		return ""
	}
	label, ok := labels[z]
	if !ok {
		label = string(z)
	}
	return fmt.Sprintf("%s\n\n%s ב%s: %s", header, label, f.Location.Name, clock(t))
}

func (f Formatter) renderAll(r Result, header string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n*זמני היום ההלכתיים ל")
	b.WriteString(f.Location.Name)
	b.WriteString(":*\n")

	for _, line := range dayLayout {
		b.WriteByte('\n')
		if line.id == "" {
			continue
		}
		value := "--:--"
		if t, ok := r.Get(line.id); ok {
			value = clock(t)
		}
		b.WriteString(line.label)
		b.WriteString(": ")
		b.WriteString(value)
	}
	return b.String()
}

func clock(t time.Time) string {
	return t.Format("15:04")
}
