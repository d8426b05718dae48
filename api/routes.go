package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/jfarrow/inboxpilot/route-handlers"
	"github.com/jfarrow/inboxpilot/webhooks"
	"github.com/jfarrow/inboxpilot/webutil"
)

const (
	outlookWatchPath         = "/api/outlook/watch"
	outlookUnwatchPath       = "/api/outlook/unwatch"
	outlookNotificationsPath = "/api/outlook/notifications"
	assistantOptionsPath     = "/api/assistant/options"
	assistantFixPath         = "/api/assistant/fix"
	extensionSessionPath     = "/api/extension/session"
	assistantRedirectPath    = "/assistant"
	extensionPagePath        = "/extension"
)

// SetupRoutes wires all endpoints. The Graph notification callback and the
// extension page stay outside the auth group: the former is called by
// Microsoft, the latter authenticates with its own session token.
func SetupRoutes(
	users UserSource,
	watchHandler *rh.WatchHandler,
	assistantHandler *rh.AssistantHandler,
	extensionHandler *rh.ExtensionHandler,
	notificationsHandler *webhooks.NotificationsHandler,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post(outlookNotificationsPath, notificationsHandler.HandleNotifications)
	r.Get(extensionPagePath, webutil.MakeHandler(extensionHandler.HandleExtensionPage))

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(users))

		r.Get(outlookWatchPath, webutil.MakeHandler(watchHandler.HandleWatchAll))
		r.Post(outlookUnwatchPath, webutil.MakeHandler(watchHandler.HandleUnwatchAll))

		r.Get(assistantOptionsPath, webutil.MakeHandler(assistantHandler.HandleGetOptions))
		r.Post(assistantFixPath, webutil.MakeHandler(assistantHandler.HandleBuildFix))
		r.Get(assistantRedirectPath, webutil.MakeHandler(assistantHandler.HandleRedirect))

		r.Post(extensionSessionPath, webutil.MakeHandler(extensionHandler.HandleCreateSession))
	})

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)

	return r
}

func handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	webutil.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
