package wiring

import (
	"fleetcare/internal/api/handlers"
	"fleetcare/internal/core"
)

// NewServer builds the HTTP server with every route mounted: the cron
// trigger, the record endpoints behind session auth and the health check.
func (a *App) NewServer() (*core.Server, error) {
	srv, err := core.NewServer(a.Config, a.Logger)
	if err != nil {
		return nil, err
	}
	srv.Authenticator = core.NewJWTAuthenticator(a.Config.Auth.JWTSecret, "")
	srv.HealthProbes = append(srv.HealthProbes, core.NewPingProbe("database", a.DB.Ping))

	scanHandler := handlers.NewScanHandler(a.Scanner, a.Config.Cron.Secret, a.Clock, a.Logger)
	recordHandler := handlers.NewRecordHandler(a.Records, srv.Validator, a.Logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		scanHandler.RegisterRoutes,
		recordHandler.RegisterRoutes(srv.RequireSession),
	)
	srv.MountRoutes()
	return srv, nil
}
