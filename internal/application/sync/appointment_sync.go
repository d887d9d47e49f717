package sync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/domain/tenant"
)

// AppointmentSyncer reconciles calendar events across every calendar of
// the location. The contact relation is required: an event whose contact
// cannot be resolved is skipped and counted, never escalated.
type AppointmentSyncer struct {
	client       crm.Client
	tokens       TokenProvider
	tenants      tenant.Repository
	appointments crm.AppointmentRepository
	resolver     crm.ContactResolver
	windowPast   time.Duration
	windowAhead  time.Duration
	logger       *zap.Logger
}

// NewAppointmentSyncer creates a new AppointmentSyncer. windowPast and
// windowAhead bound the default date range when the caller supplies none.
func NewAppointmentSyncer(client crm.Client, tokens TokenProvider, tenants tenant.Repository, appointments crm.AppointmentRepository, resolver crm.ContactResolver, windowPast, windowAhead time.Duration, logger *zap.Logger) *AppointmentSyncer {
	if windowPast <= 0 {
		windowPast = 30 * 24 * time.Hour
	}
	if windowAhead <= 0 {
		windowAhead = 90 * 24 * time.Hour
	}
	return &AppointmentSyncer{
		client:       client,
		tokens:       tokens,
		tenants:      tenants,
		appointments: appointments,
		resolver:     resolver,
		windowPast:   windowPast,
		windowAhead:  windowAhead,
		logger:       logger,
	}
}

// Name returns the stage name
func (s *AppointmentSyncer) Name() string { return "appointments" }

// Sync fetches one page of events per calendar and upserts them
func (s *AppointmentSyncer) Sync(ctx context.Context, t *tenant.Tenant, opts Options) (*Result, error) {
	start := time.Now()

	cred, err := s.tokens.Resolve(ctx, t)
	if err != nil {
		return nil, err
	}

	if opts.StartDate.IsZero() {
		opts.StartDate = time.Now().Add(-s.windowPast)
	}
	if opts.EndDate.IsZero() {
		opts.EndDate = time.Now().Add(s.windowAhead)
	}

	calendars, err := s.client.ListCalendars(ctx, cred.AccessToken, t.LocationID)
	if err != nil {
		if errors.Is(err, crm.ErrNotSupported) {
			return emptyResult(start), nil
		}
		return nil, err
	}

	res := &Result{}
	total := 0
	hasMore := false
	for _, calendar := range calendars {
		page, err := s.client.ListAppointments(ctx, cred.AccessToken, t.LocationID, calendar.ExternalID, pageRequest(opts))
		if err != nil {
			if errors.Is(err, crm.ErrNotSupported) {
				continue
			}
			return nil, err
		}
		total += page.Total
		if page.HasMore(pageRequest(opts)) {
			hasMore = true
		}

		for i := range page.Items {
			external := page.Items[i]
			res.Processed++
			external.LocationID = t.LocationID
			if external.CalendarID == "" {
				external.CalendarID = calendar.ExternalID
			}

			if err := s.upsert(ctx, t, &external, res); err != nil {
				return nil, err
			}
		}
	}

	count, err := s.appointments.CountForLocation(ctx, t.LocationID)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.UpdateEntityCount(ctx, t.ID, "appointments", int(count)); err != nil {
		return nil, err
	}

	res.TotalInExternal = total
	res.HasMore = hasMore
	res.NextOffset = opts.Offset + opts.Limit
	res.Duration = time.Since(start)
	return res, nil
}

// upsert resolves the event's contact and merges or inserts the record.
// Unresolved contacts skip the record with an errors[] entry.
func (s *AppointmentSyncer) upsert(ctx context.Context, t *tenant.Tenant, external *crm.Appointment, res *Result) error {
	contactID, err := s.resolver.Resolve(ctx, t.LocationID, external.ContactExternalID, "", "")
	if err != nil {
		if errors.Is(err, crm.ErrRelationUnresolved) {
			res.Skipped++
			res.Errors = append(res.Errors, recordError(external.ExternalID, err))
			return nil
		}
		return err
	}
	external.ContactID = &contactID

	existing, err := s.appointments.FindByExternalID(ctx, t.LocationID, external.ExternalID)
	var fresh bool
	switch {
	case err == nil:
		external.BaseEntity = existing.BaseEntity
		external.UpdateTimestamp()
	case errors.Is(err, shared.ErrNotFound):
		external.BaseEntity = shared.NewBaseEntity()
		fresh = true
	default:
		return err
	}
	external.LastSyncedAt = time.Now()

	if err := s.appointments.Save(ctx, external); err != nil {
		s.logger.Warn("failed to upsert appointment",
			zap.String("locationId", t.LocationID),
			zap.String("externalId", external.ExternalID),
			zap.Error(err))
		res.Skipped++
		res.Errors = append(res.Errors, recordError(external.ExternalID, err))
		return nil
	}
	if fresh {
		res.Created++
	} else {
		res.Updated++
	}
	return nil
}

var _ EntitySyncer = (*AppointmentSyncer)(nil)
