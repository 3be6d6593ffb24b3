package devserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bazrganidrwst/warehouse-client/endpoint"
	"github.com/bazrganidrwst/warehouse-client/internal/obs"
	"github.com/bazrganidrwst/warehouse-client/users"
)

// Dev control routes. They sit outside /api so maintenance mode never
// blocks them.
const (
	RouteDevMaintenance   = "/_dev/maintenance"
	RouteDevExpireTokens  = "/_dev/expire-tokens"
	RouteDevNotifications = "/_dev/notifications"
	RouteMetrics          = "/metrics"
	APIPrefix             = "/api"
)

func (s *Server) initRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.LoggingMiddleware, s.RecoverMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.Instrument)
		r.Method(http.MethodGet, RouteMetrics, obs.Handler(s.registry))
	}

	r.Post(RouteDevMaintenance, s.handleDevMaintenance)
	r.Post(RouteDevExpireTokens, s.handleDevExpireTokens)
	r.Post(RouteDevNotifications, s.handleDevNotification)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Use(s.MaintenanceMiddleware)

		r.Post(endpoint.Login, s.handleLogin)
		r.Post(endpoint.Refresh, s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.RequireAuth)
			s.accountRoutes(r)
			s.notificationRoutes(r)
			s.domainRoutes(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})
	s.router = r
}

func (s *Server) accountRoutes(r chi.Router) {
	r.Post(endpoint.Logout, s.handleLogout)
	r.Post(endpoint.LogoutAll, s.handleLogoutAll)
	r.Get(endpoint.Me, s.handleMe)
	r.Put(endpoint.UpdateProfile, s.handleUpdateProfile)
	r.Post(endpoint.ChangePassword, s.handleChangePassword)
	r.Post(endpoint.ProfileImage, s.handleProfileImage)
	r.Get(endpoint.Devices, s.handleDevices)
	r.Delete(endpoint.RevokeToken, s.handleRevokeDevice)
	r.Get(endpoint.SystemDetails, s.handleDetails)
	r.Get(endpoint.Dashboard, s.handleDashboard)

	r.Post(endpoint.StickyNotes, s.handleCreateNote)
	r.Put(endpoint.StickyNotes+"/{id}", s.handleUpdateNote)
	r.Delete(endpoint.StickyNotes+"/{id}", s.handleDeleteNote)
}

func (s *Server) notificationRoutes(r chi.Router) {
	r.Get(endpoint.UnreadNotifications, s.handleUnreadNotifications)
	r.Post(endpoint.MarkAllNotifications, s.handleMarkAllNotificationsRead)
	r.Post("/notifications/{id}/mark-as-read", s.handleMarkNotificationRead)
}

func (s *Server) domainRoutes(r chi.Router) {
	admin := RequireType(users.TypeAdmin)
	finance := RequireType(users.TypeAdmin, users.TypeAccountant)

	for _, c := range s.collections {
		switch c.staff {
		case users.TypeAdmin, users.TypeAccountant:
			r.Group(func(r chi.Router) {
				r.Use(admin)
				s.routeCollection(r, c)
			})
		default:
			s.routeCollection(r, c)
		}
	}

	r.Get(endpoint.ExchangeRates, s.handleExchangeRates)
	r.Get(endpoint.ActiveExchangeRate, s.handleActiveExchangeRate)
	r.With(finance).Post(endpoint.ExchangeRates, s.handleCreateExchangeRate)

	r.Route("/cashbox/{branch}", func(r chi.Router) {
		r.Use(finance)
		r.Get("/", s.handleCashbox)
		r.Post("/open", s.handleCashboxOpen)
		r.Post("/close", s.handleCashboxClose)
		r.Post("/deposit", s.handleCashboxDeposit)
		r.Post("/withdraw", s.handleCashboxWithdraw)
	})
}
