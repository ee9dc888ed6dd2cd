package dashboard

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
		Name:     "dashboard",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
