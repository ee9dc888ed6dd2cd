package home

import (
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewdata"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/viewkit"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the landing page.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// feature is one card of the landing page's feature grid.
type feature struct {
	Icon     string
	TitleKey string
	BodyKey  string
}

var features = []feature{
	{Icon: "meter", TitleKey: "home.features.readings.title", BodyKey: "home.features.readings.body"},
	{Icon: "tariff", TitleKey: "home.features.tariffs.title", BodyKey: "home.features.tariffs.body"},
	{Icon: "invoice", TitleKey: "home.features.invoices.title", BodyKey: "home.features.invoices.body"},
	{Icon: "building", TitleKey: "home.features.circulation.title", BodyKey: "home.features.circulation.body"},
	{Icon: "shield", TitleKey: "home.features.isolation.title", BodyKey: "home.features.isolation.body"},
	{Icon: "globe", TitleKey: "home.features.locales.title", BodyKey: "home.features.locales.body"},
}

type homeData struct {
	viewdata.BaseVM
	Features []feature
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	viewkit.Render(w, r, "home_page", homeData{
		BaseVM:   viewdata.New(r, "home.title", "/"),
		Features: features,
	})
}

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeRoot)
	return r
}
