package models

import (
	"encoding/json"
	"time"

	"github.com/lpai/backend/internal/domain/tenant"
)

// TenantModel is the persistence model for the Tenant domain entity.
// Credential, syncProgress and entityCounts are JSONB documents so stage
// writes can target a single sub-path with jsonb_set instead of rewriting
// the whole row.
type TenantModel struct {
	BaseModel
	LocationID       string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	CompanyID        string     `gorm:"type:varchar(100);index"`
	Name             string     `gorm:"type:varchar(255)"`
	Email            string     `gorm:"type:varchar(255)"`
	Phone            string     `gorm:"type:varchar(50)"`
	Timezone         string     `gorm:"type:varchar(100)"`
	APIKey           string     `gorm:"type:text"`
	CredentialJSON   string     `gorm:"type:jsonb;column:credential"`
	SyncProgressJSON string     `gorm:"type:jsonb;column:sync_progress;not null;default:'{}'"`
	SetupDataJSON    string     `gorm:"type:jsonb;column:setup_data;not null;default:'{}'"`
	EntityCountsJSON string     `gorm:"type:jsonb;column:entity_counts;not null;default:'{}'"`
	SetupCompleted   bool       `gorm:"not null;default:false"`
	SetupCompletedAt *time.Time
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *tenant.Tenant {
	t := &tenant.Tenant{
		BaseEntity:       m.BaseModel.ToDomain(),
		LocationID:       m.LocationID,
		CompanyID:        m.CompanyID,
		Name:             m.Name,
		Email:            m.Email,
		Phone:            m.Phone,
		Timezone:         m.Timezone,
		APIKey:           m.APIKey,
		SyncProgress:     make(tenant.SyncProgress),
		SetupData:        make(map[string]any),
		EntityCounts:     make(map[string]int),
		SetupCompleted:   m.SetupCompleted,
		SetupCompletedAt: m.SetupCompletedAt,
	}

	if m.CredentialJSON != "" && m.CredentialJSON != "null" {
		var cred tenant.Credential
		if err := json.Unmarshal([]byte(m.CredentialJSON), &cred); err == nil {
			t.Credential = &cred
		}
	}
	if m.SyncProgressJSON != "" {
		var progress tenant.SyncProgress
		if err := json.Unmarshal([]byte(m.SyncProgressJSON), &progress); err == nil {
			t.SyncProgress = progress
		}
	}
	if m.SetupDataJSON != "" {
		var data map[string]any
		if err := json.Unmarshal([]byte(m.SetupDataJSON), &data); err == nil {
			t.SetupData = data
		}
	}
	if m.EntityCountsJSON != "" {
		var counts map[string]int
		if err := json.Unmarshal([]byte(m.EntityCountsJSON), &counts); err == nil {
			t.EntityCounts = counts
		}
	}
	return t
}

// FromDomain populates the persistence model from a domain Tenant
func (m *TenantModel) FromDomain(t *tenant.Tenant) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.LocationID = t.LocationID
	m.CompanyID = t.CompanyID
	m.Name = t.Name
	m.Email = t.Email
	m.Phone = t.Phone
	m.Timezone = t.Timezone
	m.APIKey = t.APIKey
	m.SetupCompleted = t.SetupCompleted
	m.SetupCompletedAt = t.SetupCompletedAt

	if t.Credential != nil {
		if jsonBytes, err := json.Marshal(t.Credential); err == nil {
			m.CredentialJSON = string(jsonBytes)
		}
	}
	m.SyncProgressJSON = marshalOrEmptyObject(t.SyncProgress)
	m.SetupDataJSON = marshalOrEmptyObject(t.SetupData)
	m.EntityCountsJSON = marshalOrEmptyObject(t.EntityCounts)
}

// CompanyModel is the persistence model for the Company domain entity
type CompanyModel struct {
	BaseModel
	CompanyID      string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name           string `gorm:"type:varchar(255)"`
	CredentialJSON string `gorm:"type:jsonb;column:credential"`
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// ToDomain converts the persistence model to a domain Company
func (m *CompanyModel) ToDomain() *tenant.Company {
	c := &tenant.Company{
		BaseEntity: m.BaseModel.ToDomain(),
		CompanyID:  m.CompanyID,
		Name:       m.Name,
	}
	if m.CredentialJSON != "" && m.CredentialJSON != "null" {
		var cred tenant.Credential
		if err := json.Unmarshal([]byte(m.CredentialJSON), &cred); err == nil {
			c.Credential = &cred
		}
	}
	return c
}

// FromDomain populates the persistence model from a domain Company
func (m *CompanyModel) FromDomain(c *tenant.Company) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.CompanyID = c.CompanyID
	m.Name = c.Name
	if c.Credential != nil {
		if jsonBytes, err := json.Marshal(c.Credential); err == nil {
			m.CredentialJSON = string(jsonBytes)
		}
	}
}

// marshalOrEmptyObject serializes a value to JSON, defaulting to "{}"
func marshalOrEmptyObject(v any) string {
	if v == nil {
		return "{}"
	}
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}
