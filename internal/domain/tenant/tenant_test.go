package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStageStatus_IsValid(t *testing.T) {
	valid := []StageStatus{
		StageStatusPending,
		StageStatusStarting,
		StageStatusSyncing,
		StageStatusComplete,
		StageStatusFailed,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), s.String())
	}
	assert.False(t, StageStatus("running").IsValid())
	assert.False(t, StageStatus("").IsValid())
}

func TestStageStatus_IsTerminal(t *testing.T) {
	assert.True(t, StageStatusComplete.IsTerminal())
	assert.True(t, StageStatusFailed.IsTerminal())
	assert.False(t, StageStatusPending.IsTerminal())
	assert.False(t, StageStatusSyncing.IsTerminal())
}

func TestStageStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    StageStatus
		to      StageStatus
		allowed bool
	}{
		{"pending to starting", StageStatusPending, StageStatusStarting, true},
		{"starting to syncing", StageStatusStarting, StageStatusSyncing, true},
		{"syncing to complete", StageStatusSyncing, StageStatusComplete, true},
		{"syncing to failed", StageStatusSyncing, StageStatusFailed, true},
		{"pending straight to failed", StageStatusPending, StageStatusFailed, true},
		{"same status", StageStatusSyncing, StageStatusSyncing, true},
		{"complete and failed share a rank", StageStatusComplete, StageStatusFailed, true},
		{"complete back to syncing", StageStatusComplete, StageStatusSyncing, false},
		{"syncing back to pending", StageStatusSyncing, StageStatusPending, false},
		{"invalid source", StageStatus("bogus"), StageStatusSyncing, false},
		{"invalid target", StageStatusPending, StageStatus("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSyncProgress_Stage(t *testing.T) {
	t.Run("nil map defaults to pending", func(t *testing.T) {
		var p SyncProgress
		assert.Equal(t, StageStatusPending, p.Stage("contacts").Status)
	})

	t.Run("missing stage defaults to pending", func(t *testing.T) {
		p := make(SyncProgress)
		assert.Equal(t, StageStatusPending, p.Stage("contacts").Status)
	})

	t.Run("returns the stored record", func(t *testing.T) {
		p := SyncProgress{"contacts": {Status: StageStatusComplete, Created: 7}}
		got := p.Stage("contacts")
		assert.Equal(t, StageStatusComplete, got.Status)
		assert.Equal(t, 7, got.Created)
	})
}

func TestSyncProgress_ResetForRun(t *testing.T) {
	p := SyncProgress{
		"profile":  {Status: StageStatusFailed, Error: "boom"},
		"contacts": {Status: StageStatusComplete, Created: 10},
		"overall":  {Status: StageStatusComplete},
	}
	p.ResetForRun([]string{"profile", "contacts"})

	assert.Equal(t, StageProgress{Status: StageStatusPending}, p["profile"])
	assert.Equal(t, StageProgress{Status: StageStatusPending}, p["contacts"])
	// Stages outside the run are untouched.
	assert.Equal(t, StageStatusComplete, p["overall"].Status)
}

func TestCredential_HasAccessToken(t *testing.T) {
	var nilCred *Credential
	assert.False(t, nilCred.HasAccessToken())
	assert.False(t, (&Credential{}).HasAccessToken())
	assert.True(t, (&Credential{AccessToken: "tok"}).HasAccessToken())
}

func TestCredential_IsExpiringSoon(t *testing.T) {
	t.Run("nil credential never expires", func(t *testing.T) {
		var c *Credential
		assert.False(t, c.IsExpiringSoon(time.Hour))
	})

	t.Run("zero expiry is treated as non-expiring", func(t *testing.T) {
		c := &Credential{AccessToken: "tok"}
		assert.False(t, c.IsExpiringSoon(time.Hour))
	})

	t.Run("inside the window", func(t *testing.T) {
		c := &Credential{ExpiresAt: time.Now().Add(10 * time.Minute)}
		assert.True(t, c.IsExpiringSoon(time.Hour))
	})

	t.Run("outside the window", func(t *testing.T) {
		c := &Credential{ExpiresAt: time.Now().Add(12 * time.Hour)}
		assert.False(t, c.IsExpiringSoon(time.Hour))
	})

	t.Run("already expired", func(t *testing.T) {
		c := &Credential{ExpiresAt: time.Now().Add(-time.Minute)}
		assert.True(t, c.IsExpiringSoon(time.Hour))
	})
}

func TestCredential_IsOlderThan(t *testing.T) {
	var nilCred *Credential
	assert.False(t, nilCred.IsOlderThan(time.Hour))
	assert.False(t, (&Credential{}).IsOlderThan(time.Hour))

	fresh := &Credential{InstalledAt: time.Now().Add(-time.Minute)}
	assert.False(t, fresh.IsOlderThan(time.Hour))

	stale := &Credential{InstalledAt: time.Now().Add(-48 * time.Hour)}
	assert.True(t, stale.IsOlderThan(24*time.Hour))
}

func TestNewTenant(t *testing.T) {
	tn := NewTenant("loc_1", "comp_1")

	assert.NotEqual(t, [16]byte{}, [16]byte(tn.ID))
	assert.Equal(t, "loc_1", tn.LocationID)
	assert.Equal(t, "comp_1", tn.CompanyID)
	assert.NotNil(t, tn.SyncProgress)
	assert.NotNil(t, tn.SetupData)
	assert.NotNil(t, tn.EntityCounts)
	assert.False(t, tn.SetupCompleted)
	assert.False(t, tn.HasDirectCredential())
}

func TestTenant_HasDirectCredential(t *testing.T) {
	tn := NewTenant("loc_1", "comp_1")
	assert.False(t, tn.HasDirectCredential())

	tn.Credential = &Credential{}
	assert.False(t, tn.HasDirectCredential())

	tn.Credential.AccessToken = "tok"
	assert.True(t, tn.HasDirectCredential())
}

func TestNewCompany(t *testing.T) {
	c := NewCompany("comp_1")
	assert.Equal(t, "comp_1", c.CompanyID)
	assert.Nil(t, c.Credential)
	assert.False(t, c.CreatedAt.IsZero())
}
