package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/garage-service/internal/auth"
	"github.com/ukydev/garage-service/internal/catalog"
	"github.com/ukydev/garage-service/internal/db"
	"github.com/ukydev/garage-service/internal/events"
	"github.com/ukydev/garage-service/internal/lifecycle"
	"github.com/ukydev/garage-service/internal/middleware"
	"github.com/ukydev/garage-service/internal/models"
	"github.com/ukydev/garage-service/internal/quote"
	"github.com/ukydev/garage-service/internal/stats"
)

// RouterConfig holds what NewRouter needs to build the services.
type RouterConfig struct {
	Store     *db.Store
	Auth      *auth.Service
	Publisher events.Publisher
	// Clock stamps lifecycle history and stats; nil means time.Now.
	Clock func() time.Time

	RateLimitRequests int
	RateLimitWindow   time.Duration
	// TrustProxyHeaders keys rate limiting on forwarded client addresses.
	TrustProxyHeaders bool
}

// NewRouter builds the services over cfg.Store and mounts every endpoint
// under /api behind request-id, logging, rate limiting and authentication.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	store := cfg.Store

	vehicles := catalog.NewVehicleRegistry(store.Vehicles, store.VehicleTypes)
	parts := catalog.NewPartCatalog(store.Parts, store.Offerings, store.Vehicles, cfg.Publisher)
	offerings := catalog.NewServiceCatalog(store.Offerings, store.Parts, store.VehicleTypes)
	appts := NewAppointmentHandler(lifecycle.NewService(store, vehicles,
		lifecycle.WithClock(cfg.Clock), lifecycle.WithPublisher(cfg.Publisher)))
	cat := NewCatalogHandler(parts, offerings, vehicles)
	quotes := NewQuoteHandler(quote.NewEngine(store))
	dash := NewStatsHandler(stats.NewService(store, cfg.Clock))
	users := NewAuthHandler(cfg.Auth, store.Users)

	authMW := middleware.NewAuthMiddleware(cfg.Auth)
	can := authMW.RequirePermission
	staff := authMW.RequireRole(models.RoleMechanic, models.RoleManager)

	mux := http.NewServeMux()
	route := func(pattern string, h http.Handler, mws ...func(http.Handler) http.Handler) {
		mux.Handle(pattern, middleware.Chain(h, mws...))
	}

	route("GET /health", http.HandlerFunc(health))

	route("POST /api/auth/register", http.HandlerFunc(users.Register))
	route("POST /api/auth/login", http.HandlerFunc(users.Login))
	route("GET /api/auth/profile", http.HandlerFunc(users.GetProfile))
	route("GET /api/users", http.HandlerFunc(users.ListUsers), can(models.ActionManageUsers))
	route("POST /api/users", http.HandlerFunc(users.CreateUser), can(models.ActionManageUsers))
	route("DELETE /api/users/{id}", http.HandlerFunc(users.DeleteUser), can(models.ActionManageUsers))

	route("POST /api/appointments", appts.Book(), can(models.ActionBookAppointment))
	route("GET /api/appointments", http.HandlerFunc(appts.List))
	route("GET /api/appointments/{id}", appts.Get())
	route("GET /api/appointments/{id}/tracking", appts.Tracking())
	route("PATCH /api/appointments/{id}/assign-mechanic", appts.AssignMechanic(), can(models.ActionAssignMechanic))
	route("PATCH /api/appointments/{id}/reschedule", appts.Reschedule(), can(models.ActionReschedule))
	route("PATCH /api/appointments/{id}/start", appts.Start(), can(models.ActionDriveServices))
	route("PATCH /api/appointments/{id}/services/{instanceId}/complete", appts.Complete(), can(models.ActionDriveServices))
	route("PATCH /api/appointments/{id}/services/{instanceId}/cancel", appts.Cancel(), can(models.ActionDriveServices))
	route("POST /api/appointments/{id}/services", appts.AddService(), can(models.ActionDriveServices))
	route("PUT /api/appointments/{id}/review", appts.Review(), can(models.ActionReview))
	route("GET /api/mechanic/appointments", appts.MechanicAppointments(), authMW.RequireRole(models.RoleMechanic))

	route("POST /api/quotes", quotes.Quote())
	route("GET /api/quotes/options", quotes.Options())

	route("GET /api/parts", cat.ListParts())
	route("POST /api/parts", cat.CreatePart(), can(models.ActionManageCatalog))
	route("GET /api/parts/low-stock", cat.LowStock(), staff)
	route("GET /api/parts/{id}", cat.GetPart())
	route("DELETE /api/parts/{id}", http.HandlerFunc(cat.DeletePart), can(models.ActionManageCatalog))
	route("PATCH /api/parts/{id}/stock", cat.SetStock(), staff)

	route("GET /api/offerings", cat.ListOfferings())
	route("POST /api/offerings", cat.CreateOffering(), can(models.ActionManageCatalog))
	route("GET /api/offerings/{id}", cat.GetOffering())
	route("GET /api/offerings/{id}/labor-price", cat.LaborPrice())
	route("PUT /api/offerings/{id}", cat.UpdateOffering(), can(models.ActionManageCatalog))
	route("DELETE /api/offerings/{id}", http.HandlerFunc(cat.DeleteOffering), can(models.ActionManageCatalog))

	route("GET /api/vehicle-types", cat.ListVehicleTypes())
	route("POST /api/vehicle-types", cat.CreateVehicleType(), can(models.ActionManageCatalog))
	route("GET /api/vehicles", cat.ListVehicles())
	route("POST /api/vehicles", cat.RegisterVehicle(), can(models.ActionRegisterVehicle))

	route("GET /api/stats/general", dash.General(), can(models.ActionViewStats))
	route("GET /api/stats/top-offerings", dash.TopOfferings(), can(models.ActionViewStats))
	route("GET /api/stats/low-stock", cat.LowStock(), can(models.ActionViewStats))
	route("GET /api/stats/revenue", dash.Revenue(), can(models.ActionViewStats))
	route("GET /api/stats/mechanic/{id}", dash.Mechanic(), can(models.ActionViewMechanicStats))

	limiter := middleware.NewRateLimitMiddleware()
	limiter.TrustForwarded = cfg.TrustProxyHeaders
	chain := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Logger, middleware.Recover}
	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow > 0 {
		chain = append(chain, limiter.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}
	chain = append(chain, authMW.Authenticate)
	return middleware.Chain(mux, chain...)
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
