package http

import (
	"embed"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/crown/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded views.
func Templates() *template.Template {
	funcs := template.FuncMap{
		"displayName": func(u *models.User) string {
			if name := u.DisplayName(); name != "" {
				return name
			}
			return "unknown"
		},
		"formatDate": func(t time.Time) string {
			return t.Local().Format("Jan 2, 2006 15:04")
		},
	}

	return template.Must(template.New("views").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// view builds the variables every page shares.
func (e *Env) view(c *gin.Context, vars gin.H) gin.H {
	out := gin.H{
		"currentUser": currentUser(c),
		"year":        e.now().Year(),
	}
	for k, v := range vars {
		out[k] = v
	}

	return out
}
