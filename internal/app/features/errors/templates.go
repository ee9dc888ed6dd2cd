// internal/app/features/errors/templates.go
package errors

import (
	"embed"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/resources"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	resources.LoadSharedTemplates()
	viewkit.Register(viewkit.Set{
		Name:     "errors",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
