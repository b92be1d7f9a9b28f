package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luminoshop/cartsync/api/controllers"
	cartcontrollers "github.com/luminoshop/cartsync/api/controllers/cart"
	"github.com/luminoshop/cartsync/api/middleware"
	"github.com/luminoshop/cartsync/pkg/config"
	"github.com/luminoshop/cartsync/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Engine     cartcontrollers.Engine
	Promos     cartcontrollers.PromoApplier
	Email      cartcontrollers.EmailSender
	Handoff    controllers.HandoffPreparer
	Pingers    map[string]controllers.Pinger
	Registry   *prometheus.Registry
	CORSExtras []string
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(deps.CORSExtras...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.Pingers))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Fetch(deps.Engine, deps.Logger))
			r.Get("/badge", cartcontrollers.Badge(deps.Engine, deps.Logger))
			r.Post("/refresh", cartcontrollers.Refresh(deps.Engine, deps.Logger))
			r.Post("/items", cartcontrollers.AddItem(deps.Engine, deps.Logger))
			r.Patch("/items/{itemID}", cartcontrollers.UpdateItem(deps.Engine, deps.Logger))
			r.Delete("/items/{itemID}", cartcontrollers.RemoveItem(deps.Engine, deps.Logger))
			r.Post("/promotions", cartcontrollers.ApplyPromotions(deps.Promos, deps.Engine, deps.Logger))
			r.Post("/email", cartcontrollers.Email(deps.Email, deps.Logger))
			r.Post("/clear", cartcontrollers.Clear(deps.Engine, deps.Logger))
		})
		r.Post("/checkout/handoff", controllers.CheckoutHandoff(deps.Handoff, deps.Logger))
	})

	return r
}
