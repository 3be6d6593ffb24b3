package apiclient

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/router"
	"github.com/bazrganidrwst/warehouse-client/storage"
)

// enterMaintenance flags maintenance mode for this session and moves the
// user to the maintenance route. It never notifies.
func (c *Client) enterMaintenance() *Error {
	c.metrics.Maintenance()
	if err := c.sessionStore.Set(storage.KeyMaintenanceMode, "true"); err != nil {
		log.Err(err).Msg("store maintenance flag")
	}

	if c.navigator == nil || c.navigator.CurrentPath() == router.RouteMaintenance {
		return &Error{Kind: KindMaintenance, Status: http.StatusServiceUnavailable, Message: MsgMaintenance}
	}

	log.Warn().Msg("server under maintenance, redirecting")
	nav := c.navigator
	nav.Replace(router.RouteMaintenance)
	time.AfterFunc(c.maintenanceFallback, func() {
		if nav.CurrentPath() != router.RouteMaintenance {
			nav.Replace(router.RouteMaintenance)
		}
	})
	return &Error{Kind: KindMaintenance, Status: http.StatusServiceUnavailable, Message: MsgMaintenanceRedirect}
}

// InMaintenance reports whether a maintenance response was seen in this
// session.
func (c *Client) InMaintenance() bool {
	return storage.GetBool(c.sessionStore, storage.KeyMaintenanceMode)
}

// ClearMaintenance is called once the backend answers again.
func (c *Client) ClearMaintenance() error {
	return c.sessionStore.Remove(storage.KeyMaintenanceMode)
}
