// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/edusync/internal/app/notify"
	groupstore "github.com/dalemusser/edusync/internal/app/store/groups"
	membershipstore "github.com/dalemusser/edusync/internal/app/store/memberships"
	notificationstore "github.com/dalemusser/edusync/internal/app/store/notifications"
	recordstore "github.com/dalemusser/edusync/internal/app/store/records"
	userstore "github.com/dalemusser/edusync/internal/app/store/users"
	appsync "github.com/dalemusser/edusync/internal/app/sync"
	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Long-lived components built once at startup and shared between
// BuildHandler and Shutdown.
var (
	groupsStore      *groupstore.Store
	membershipsStore *membershipstore.Store
	recordsStore     *recordstore.Store
	notifsStore      *notificationstore.Store
	usersStore       *userstore.Store
	fanout           *notify.Fanout
	engineManager    *appsync.Manager
	cleanupWorker    *workers.NotificationCleanup
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built:
// the session store, the stores, the per-user sync engine manager, and
// the notification retention worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger); err != nil {
		return err
	}

	groupsStore = groupstore.New(deps.MongoDatabase)
	membershipsStore = membershipstore.New(deps.MongoClient, deps.MongoDatabase, groupsStore, logger)
	recordsStore = recordstore.New(deps.MongoDatabase, groupsStore, logger)
	notifsStore = notificationstore.New(deps.MongoClient, deps.MongoDatabase, logger)
	usersStore = userstore.New(deps.MongoDatabase)

	fanout = notify.New(groupsStore, notifsStore, logger)

	engineManager = appsync.NewManager(membershipsStore, recordsStore, appCfg.EngineIdleTTL, logger)
	engineManager.Start()

	cleanupWorker = workers.NewNotificationCleanup(notifsStore, logger, appCfg.NotifCleanupInterval, appCfg.NotifRetention)
	cleanupWorker.Start()

	return nil
}
