package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lpai/backend/internal/application/onboarding"
	"github.com/lpai/backend/internal/domain/tenant"
)

// SyncRunner triggers onboarding runs
type SyncRunner interface {
	Run(ctx context.Context, tenantID uuid.UUID, fullSync bool) (*onboarding.RunSummary, error)
}

// TenantReader loads tenant records for progress reads
type TenantReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// OnboardingHandler exposes the operational onboarding API: triggering a
// run and reading durable progress.
type OnboardingHandler struct {
	BaseHandler
	orchestrator SyncRunner
	tenants      TenantReader
	logger       *zap.Logger
}

// NewOnboardingHandler creates a new OnboardingHandler
func NewOnboardingHandler(orchestrator SyncRunner, tenants TenantReader, logger *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		orchestrator: orchestrator,
		tenants:      tenants,
		logger:       logger,
	}
}

// RegisterRoutes registers onboarding routes on the guarded API group
func (h *OnboardingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/onboarding")
	group.POST("/run", h.RunSync)
	group.GET("/progress/:tenantId", h.GetProgress)
}

// RunSyncRequest is the body of a manual run trigger
type RunSyncRequest struct {
	TenantID string `json:"tenantId" binding:"required,uuid"`
	FullSync bool   `json:"fullSync"`
}

// RunSyncResponse mirrors the orchestrator run summary
type RunSyncResponse struct {
	Success  bool                                `json:"success"`
	Message  string                              `json:"message"`
	Steps    map[string]*onboarding.StageOutcome `json:"steps"`
	Duration string                              `json:"duration"`
}

// RunSync triggers an onboarding run and waits for it to finish. The run
// executes under the install lock; a concurrent run is rejected with 409.
func (h *OnboardingHandler) RunSync(c *gin.Context) {
	var req RunSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant id")
		return
	}

	summary, err := h.orchestrator.Run(c.Request.Context(), tenantID, req.FullSync)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RunSyncResponse{
		Success:  summary.Success,
		Message:  summary.Message,
		Steps:    summary.Steps,
		Duration: summary.Duration.String(),
	})
}

// ProgressResponse is the durable progress view of a tenant
type ProgressResponse struct {
	TenantID       string              `json:"tenantId"`
	LocationID     string              `json:"locationId"`
	SetupCompleted bool                `json:"setupCompleted"`
	Progress       tenant.SyncProgress `json:"progress"`
	EntityCounts   map[string]int      `json:"entityCounts,omitempty"`
}

// GetProgress returns the persisted per-stage progress for a tenant. It
// reads the durable document, so it reflects runs still in flight.
func (h *OnboardingHandler) GetProgress(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenantId"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant id")
		return
	}

	t, err := h.tenants.FindByID(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ProgressResponse{
		TenantID:       t.ID.String(),
		LocationID:     t.LocationID,
		SetupCompleted: t.SetupCompleted,
		Progress:       t.SyncProgress,
		EntityCounts:   t.EntityCounts,
	})
}
