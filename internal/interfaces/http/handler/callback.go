package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lpai/backend/internal/application/onboarding"
	"github.com/lpai/backend/internal/domain/crm"
)

// InstallCompleter completes OAuth authorization callbacks
type InstallCompleter interface {
	CompleteAuthorization(ctx context.Context, code, locationID, companyID string) (*onboarding.InstallOutcome, error)
}

// CallbackHandler completes OAuth authorization callbacks from the
// external CRM. The CRM redirects the installing user's browser here, so
// responses are HTML pages, not JSON.
type CallbackHandler struct {
	installs InstallCompleter
	logger   *zap.Logger
}

// NewCallbackHandler creates a new CallbackHandler
func NewCallbackHandler(installs InstallCompleter, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		installs: installs,
		logger:   logger,
	}
}

// RegisterRoutes registers the callback on the public (unguarded) engine.
// The CRM cannot send a bearer token with the browser redirect.
func (h *CallbackHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/onboarding/callback", h.Complete)
}

// Complete exchanges the authorization code and queues onboarding. The
// page returns as soon as the run is dispatched; sync continues in the
// background.
func (h *CallbackHandler) Complete(c *gin.Context) {
	code := c.Query("code")
	locationID := c.Query("locationId")
	companyID := c.Query("companyId")

	outcome, err := h.installs.CompleteAuthorization(c.Request.Context(), code, locationID, companyID)
	switch {
	case err == nil:
		h.logger.Info("authorization callback completed",
			zap.String("locationId", outcome.LocationID),
			zap.Bool("companyLevel", outcome.CompanyLevel),
			zap.Bool("runDispatched", outcome.RunDispatched))
		h.renderPage(c, http.StatusOK, "Installation Complete",
			"Your account is connected. Data sync has started and will continue in the background.")
	case errors.Is(err, onboarding.ErrRunInProgress):
		h.renderPage(c, http.StatusOK, "Installation In Progress",
			"Another installation for this account is already running. You can close this window.")
	case errors.Is(err, crm.ErrValidation):
		h.renderPage(c, http.StatusBadRequest, "Installation Failed",
			"The authorization request was incomplete. Please restart the installation from the marketplace.")
	default:
		h.logger.Error("authorization callback failed",
			zap.String("locationId", locationID),
			zap.String("companyId", companyID),
			zap.Error(err))
		h.renderPage(c, http.StatusInternalServerError, "Installation Failed",
			"Something went wrong while connecting your account. Please try again.")
	}
}

const callbackPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>%s</title>
  <style>
    body { font-family: -apple-system, sans-serif; background: #f5f6f8; margin: 0; }
    .card { max-width: 28rem; margin: 6rem auto; background: #fff; border-radius: 8px;
            padding: 2rem; box-shadow: 0 1px 4px rgba(0,0,0,0.1); text-align: center; }
    h1 { font-size: 1.25rem; }
    p { color: #555; }
  </style>
</head>
<body>
  <div class="card">
    <h1>%s</h1>
    <p>%s</p>
  </div>
</body>
</html>
`

func (h *CallbackHandler) renderPage(c *gin.Context, status int, title, message string) {
	page := fmt.Sprintf(callbackPage, title, title, message)
	c.Data(status, "text/html; charset=utf-8", []byte(page))
}
