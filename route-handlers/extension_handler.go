package routehandlers

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jfarrow/inboxpilot/models"
	"github.com/jfarrow/inboxpilot/webutil"
)

const extensionSessionTTL = time.Hour

// SessionSource reads and mints extension sessions.
type SessionSource interface {
	GetExtensionSession(ctx context.Context, token string) (*models.ExtensionSession, error)
	CreateExtensionSession(ctx context.Context, session *models.ExtensionSession) error
}

type ExtensionHandler struct {
	sessions SessionSource
}

func NewExtensionHandler(sessions SessionSource) *ExtensionHandler {
	return &ExtensionHandler{sessions: sessions}
}

type extensionPageResponse struct {
	Valid     bool          `json:"valid"`
	User      extensionUser `json:"user"`
	IframeSrc string        `json:"iframeSrc"`
}

type extensionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// HandleExtensionPage validates the extension's session token and tells it
// what to embed: the assistant page when a threadId is supplied, the
// automation page otherwise.
func (h *ExtensionHandler) HandleExtensionPage(w http.ResponseWriter, r *http.Request) error {
	token := r.URL.Query().Get("token")
	if token == "" {
		return webutil.ErrBadRequest("No session token provided")
	}

	session, err := h.sessions.GetExtensionSession(r.Context(), token)
	if err != nil {
		return webutil.ErrUnauthorized("Invalid session token")
	}

	iframeSrc := "/automation"
	if threadID := r.URL.Query().Get("threadId"); threadID != "" {
		iframeSrc = "/assistant?threadId=" + url.QueryEscape(threadID)
	}

	webutil.RespondWithJSON(w, http.StatusOK, extensionPageResponse{
		Valid:     true,
		User:      extensionUser{ID: session.UserID, Email: session.Email},
		IframeSrc: iframeSrc,
	})
	return nil
}

// HandleCreateSession mints a short-lived extension session for the
// authenticated caller.
func (h *ExtensionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) error {
	user := webutil.UserFromContext(r.Context())

	token, err := webutil.GenerateRandomToken(32)
	if err != nil {
		return webutil.ErrInternalServerWrap("failed to generate session token", err)
	}

	session := &models.ExtensionSession{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: time.Now().UTC().Add(extensionSessionTTL),
	}
	if err := h.sessions.CreateExtensionSession(r.Context(), session); err != nil {
		return webutil.ErrInternalServerWrap("failed to store session", err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, session)
	return nil
}
