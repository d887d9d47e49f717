package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
	"github.com/lpai/backend/internal/domain/tenant"
)

// TokenProvider resolves a usable credential for a tenant. Resolution
// order: direct token, then company-derived token, then the legacy API
// key. Exactly one path is authoritative per attempt.
type TokenProvider struct {
	client    crm.Client
	tenants   tenant.Repository
	companies tenant.CompanyRepository
	// refreshWindow is how close to expiry a direct token may be before an
	// opportunistic refresh is attempted
	refreshWindow time.Duration
	// rederiveAge is how old a direct token may be before a parent
	// credential triggers a best-effort re-derivation
	rederiveAge time.Duration
	logger      *zap.Logger
}

// NewTokenProvider creates a new TokenProvider
func NewTokenProvider(client crm.Client, tenants tenant.Repository, companies tenant.CompanyRepository, refreshWindow, rederiveAge time.Duration, logger *zap.Logger) *TokenProvider {
	if refreshWindow <= 0 {
		refreshWindow = time.Hour
	}
	if rederiveAge <= 0 {
		rederiveAge = 24 * time.Hour
	}
	return &TokenProvider{
		client:        client,
		tenants:       tenants,
		companies:     companies,
		refreshWindow: refreshWindow,
		rederiveAge:   rederiveAge,
		logger:        logger,
	}
}

// Resolve returns a credential for the tenant or crm.ErrAuthUnavailable.
// Refresh and re-derivation are best-effort: their failures never block
// the run while a usable direct token exists.
func (p *TokenProvider) Resolve(ctx context.Context, t *tenant.Tenant) (*tenant.Credential, error) {
	if t.HasDirectCredential() {
		return p.resolveDirect(ctx, t), nil
	}

	if t.CompanyID != "" {
		cred, err := p.deriveFromCompany(ctx, t)
		if err == nil {
			return cred, nil
		}
		p.logger.Warn("failed to derive location token from company credential",
			zap.String("locationId", t.LocationID),
			zap.String("companyId", t.CompanyID),
			zap.Error(err))
	}

	if t.APIKey != "" {
		return &tenant.Credential{
			AccessToken: t.APIKey,
			UserType:    tenant.UserTypeLocation,
		}, nil
	}

	return nil, fmt.Errorf("%w: tenant %s has no credential path", crm.ErrAuthUnavailable, t.LocationID)
}

// resolveDirect returns the tenant's own token, opportunistically
// re-deriving or refreshing it first when warranted
func (p *TokenProvider) resolveDirect(ctx context.Context, t *tenant.Tenant) *tenant.Credential {
	// A stale direct token with a living parent credential is re-derived
	// so externally rotated credentials are picked up.
	if t.CompanyID != "" && t.Credential.IsOlderThan(p.rederiveAge) {
		cred, err := p.deriveFromCompany(ctx, t)
		if err == nil {
			return cred
		}
		p.logger.Debug("best-effort token re-derivation failed",
			zap.String("locationId", t.LocationID),
			zap.Error(err))
	}

	if t.Credential.IsExpiringSoon(p.refreshWindow) && t.Credential.RefreshToken != "" {
		cred, err := p.refresh(ctx, t)
		if err == nil {
			return cred
		}
		p.logger.Warn("opportunistic token refresh failed, proceeding with current token",
			zap.String("locationId", t.LocationID),
			zap.Error(err))
	}

	return t.Credential
}

// refresh exchanges the refresh token for a fresh token set and persists it
func (p *TokenProvider) refresh(ctx context.Context, t *tenant.Tenant) (*tenant.Credential, error) {
	resp, err := p.client.RefreshAccessToken(ctx, t.Credential.RefreshToken)
	if err != nil {
		return nil, err
	}
	cred := CredentialFromToken(resp, t.Credential.DerivedFromCompany)
	if err := p.tenants.UpdateCredential(ctx, t.ID, cred); err != nil {
		return nil, err
	}
	t.Credential = cred
	return cred, nil
}

// deriveFromCompany mints a location-scoped token from the parent company
// credential and persists it onto the tenant record
func (p *TokenProvider) deriveFromCompany(ctx context.Context, t *tenant.Tenant) (*tenant.Credential, error) {
	company, err := p.companies.FindByCompanyID(ctx, t.CompanyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: company %s has no stored credential", crm.ErrAuthUnavailable, t.CompanyID)
		}
		return nil, err
	}
	if !company.Credential.HasAccessToken() {
		return nil, fmt.Errorf("%w: company %s has no stored credential", crm.ErrAuthUnavailable, t.CompanyID)
	}

	resp, err := p.client.DeriveLocationToken(ctx, company.Credential.AccessToken, t.CompanyID, t.LocationID)
	if err != nil {
		return nil, err
	}

	cred := CredentialFromToken(resp, true)
	if err := p.tenants.UpdateCredential(ctx, t.ID, cred); err != nil {
		return nil, err
	}
	t.Credential = cred
	return cred, nil
}

// CredentialFromToken converts a token endpoint response into a stored
// credential, stamping the install time
func CredentialFromToken(resp *crm.TokenResponse, derivedFromCompany bool) *tenant.Credential {
	now := time.Now()
	cred := &tenant.Credential{
		AccessToken:        resp.AccessToken,
		RefreshToken:       resp.RefreshToken,
		TokenType:          resp.TokenType,
		UserType:           tenant.UserType(resp.UserType),
		DerivedFromCompany: derivedFromCompany,
		InstalledAt:        now,
	}
	if resp.ExpiresIn > 0 {
		cred.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return cred
}
