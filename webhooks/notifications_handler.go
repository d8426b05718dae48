package webhooks

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jfarrow/inboxpilot/webutil"
)

// NotificationsHandler receives Microsoft Graph change notifications for
// the mail subscriptions this service creates.
type NotificationsHandler struct {
	clientState string
	logger      *slog.Logger
}

func NewNotificationsHandler(clientState string, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{clientState: clientState, logger: logger}
}

type changeNotification struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientState    string `json:"clientState"`
	ChangeType     string `json:"changeType"`
	Resource       string `json:"resource"`
	ResourceData   struct {
		ID string `json:"id"`
	} `json:"resourceData"`
}

type notificationBatch struct {
	Value []changeNotification `json:"value"`
}

// HandleNotifications answers the Graph subscription validation handshake
// and accepts notification batches. Notifications whose clientState does
// not match the secret registered with the subscription are dropped.
//
// Graph expects a 2xx within 30 seconds or it retries, so the handler only
// validates and acknowledges here.
func (h *NotificationsHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	// Subscription creation triggers a validation request that must be
	// echoed back as plain text.
	if validationToken := r.URL.Query().Get("validationToken"); validationToken != "" {
		w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(validationToken))
		return
	}

	var batch notificationBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.logger.Warn("failed to decode notification batch", "error", err)
		webutil.RespondWithError(w, http.StatusBadRequest, "invalid notification payload")
		return
	}
	defer r.Body.Close()

	// Graph does not supply a batch identifier, so mint one to correlate
	// the per-notification log lines.
	batchID := uuid.NewString()
	for _, notification := range batch.Value {
		if notification.ClientState != h.clientState {
			h.logger.Warn("dropping notification with mismatched clientState",
				"batchId", batchID,
				"subscriptionId", notification.SubscriptionID)
			continue
		}
		h.logger.Info("received mail change notification",
			"batchId", batchID,
			"subscriptionId", notification.SubscriptionID,
			"changeType", notification.ChangeType,
			"messageId", notification.ResourceData.ID,
		)
	}

	w.WriteHeader(http.StatusAccepted)
}
