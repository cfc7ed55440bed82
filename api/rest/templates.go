package rest

import (
	"embed"
	"html/template"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/kasuganosora/charsheet/game/item"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoadTemplates parses the embedded page templates for gin's HTML renderer.
func LoadTemplates() (*template.Template, error) {
	funcs := sprig.FuncMap()
	funcs["tooltipText"] = func(tt *item.Tooltip) string {
		if tt == nil {
			return ""
		}
		return strings.Join(append([]string{tt.Name}, tt.Text()...), "\n")
	}
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

