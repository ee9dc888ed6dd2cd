// internal/app/resources/resources.go
package resources

import (
	"embed"
	"sync"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
)

// Embed the shared layout and component templates.
//
//go:embed templates/*.gohtml
var FS embed.FS

var registerOnce sync.Once

// LoadSharedTemplates registers the layout and components. Every feature
// calls it from its own template registration so pages can always find
// the layout, whatever subset of features a binary or test links.
func LoadSharedTemplates() {
	registerOnce.Do(func() {
		viewkit.Register(viewkit.Set{
			Name:     "shared",
			FS:       FS,
			Patterns: []string{"templates/*.gohtml"},
		})
	})
}
