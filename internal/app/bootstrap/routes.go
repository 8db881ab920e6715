// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/edusync/internal/app/bridge"
	deadlinesfeature "github.com/dalemusser/edusync/internal/app/features/deadlines"
	filesfeature "github.com/dalemusser/edusync/internal/app/features/files"
	groupsfeature "github.com/dalemusser/edusync/internal/app/features/groups"
	healthfeature "github.com/dalemusser/edusync/internal/app/features/health"
	loginfeature "github.com/dalemusser/edusync/internal/app/features/login"
	notificationsfeature "github.com/dalemusser/edusync/internal/app/features/notifications"
	recordsfeature "github.com/dalemusser/edusync/internal/app/features/records"
	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/identity"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and the Startup hook have completed, so the stores, fanout, and
// engine manager package vars are live. The surface is JSON-only:
// /health and /auth are public, everything else sits behind
// RequireSignedIn.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	verifier := identity.NewVerifier(appCfg.IdentityVerifyURL, appCfg.IdentityAPIKey, appCfg.IdentityTimeout, logger)
	bridgeClient := bridge.New(appCfg.BridgeURL, appCfg.BridgeTimeout, logger)

	r := chi.NewRouter()

	// Loads SessionUser into context if logged in; handlers read it via
	// auth.CurrentUser(r).
	r.Use(auth.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(verifier, usersStore, logger)
	r.Mount("/auth", loginfeature.Routes(loginHandler))

	// Everything below requires a signed-in user.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSignedIn)

		recordsHandler := recordsfeature.NewHandler(groupsStore, recordsStore, fanout, logger)
		groupsHandler := groupsfeature.NewHandler(groupsStore, membershipsStore, recordsStore, fanout, logger)
		r.Mount("/groups", groupsfeature.Routes(groupsHandler, recordsfeature.Routes(recordsHandler)))

		deadlinesHandler := deadlinesfeature.NewHandler(engineManager, logger)
		r.Mount("/deadlines", deadlinesfeature.Routes(deadlinesHandler))

		notifsHandler := notificationsfeature.NewHandler(notifsStore, logger)
		r.Mount("/notifications", notificationsfeature.Routes(notifsHandler))

		filesHandler := filesfeature.NewHandler(bridgeClient, fanout, appCfg.SignTTL, logger)
		r.Mount("/files", filesfeature.Routes(filesHandler))
	})

	return r, nil
}
