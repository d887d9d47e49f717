package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lpai/backend/internal/domain/crm"
	"github.com/lpai/backend/internal/domain/shared"
)

func newContactSyncer(contacts *memContactRepo, external []crm.Contact) (*ContactSyncer, *memTenantRepo) {
	client := &stubClient{
		searchContacts: func(_ context.Context, _, _ string, req crm.PageRequest) (*crm.Page[crm.Contact], error) {
			return pageOf(external, req), nil
		},
	}
	tenants := newMemTenantRepo(testTenant())
	syncer := NewContactSyncer(client, testTokens(), tenants, contacts, newMemCustomFieldRepo(), zap.NewNop())
	return syncer, tenants
}

func TestContactSyncer_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent on identical external data", func(t *testing.T) {
		external := []crm.Contact{
			{ExternalID: "c1", FirstName: "Ann", Email: "ann@example.com"},
			{ExternalID: "c2", FirstName: "Bob", Email: "bob@example.com"},
		}
		contacts := newMemContactRepo()
		syncer, _ := newContactSyncer(contacts, external)
		tn := testTenant()

		first, err := syncer.Sync(ctx, tn, Options{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, first.Created)
		assert.Equal(t, 0, first.Updated)

		second, err := syncer.Sync(ctx, tn, Options{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, second.Created)
		assert.Equal(t, 2, second.Updated)

		count, err := contacts.CountForLocation(ctx, "loc_1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("merges stale email match instead of duplicating", func(t *testing.T) {
		// Scenario: 3 external contacts, 2 new, 1 already present locally
		// under an email match with no external id recorded.
		contacts := newMemContactRepo()
		existing := &crm.Contact{
			BaseEntity: shared.NewBaseEntity(),
			LocationID: "loc_1",
			Email:      "carol@example.com",
			FirstName:  "Carol",
		}
		require.NoError(t, contacts.Save(ctx, existing))

		external := []crm.Contact{
			{ExternalID: "c1", FirstName: "Ann", Email: "ann@example.com"},
			{ExternalID: "c2", FirstName: "Bob", Email: "bob@example.com"},
			{ExternalID: "c3", FirstName: "Carol", Email: "carol@example.com"},
		}
		syncer, _ := newContactSyncer(contacts, external)

		res, err := syncer.Sync(ctx, testTenant(), Options{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Created)
		assert.Equal(t, 1, res.Updated)
		assert.Equal(t, 0, res.Skipped)

		// The email-matched contact kept its identity and gained the id.
		merged, err := contacts.FindByExternalID(ctx, "loc_1", "c3")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, merged.ID)
		assert.Equal(t, existing.CreatedAt, merged.CreatedAt)

		count, err := contacts.CountForLocation(ctx, "loc_1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("converges fallback match to one record across runs", func(t *testing.T) {
		contacts := newMemContactRepo()

		// First run: the contact arrives without an external id and is
		// inserted under its email identity.
		first := []crm.Contact{{FirstName: "Dana", Email: "dana@example.com"}}
		syncer, _ := newContactSyncer(contacts, first)
		_, err := syncer.Sync(ctx, testTenant(), Options{Limit: 10})
		require.NoError(t, err)

		inserted, err := contacts.FindByEmail(ctx, "loc_1", "dana@example.com")
		require.NoError(t, err)

		// Second run: the same person re-syncs with the external id set.
		second := []crm.Contact{{ExternalID: "c9", FirstName: "Dana", Email: "dana@example.com"}}
		syncer, _ = newContactSyncer(contacts, second)
		res, err := syncer.Sync(ctx, testTenant(), Options{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Created)
		assert.Equal(t, 1, res.Updated)

		resolved, err := contacts.FindByExternalID(ctx, "loc_1", "c9")
		require.NoError(t, err)
		assert.Equal(t, inserted.ID, resolved.ID)

		count, err := contacts.CountForLocation(ctx, "loc_1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("reports pagination from the external total", func(t *testing.T) {
		external := make([]crm.Contact, 0, 7)
		for _, id := range []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7"} {
			external = append(external, crm.Contact{ExternalID: id, Email: id + "@example.com"})
		}
		syncer, _ := newContactSyncer(newMemContactRepo(), external)

		res, err := syncer.Sync(ctx, testTenant(), Options{Limit: 3, Offset: 0})
		require.NoError(t, err)
		assert.Equal(t, 7, res.TotalInExternal)
		assert.True(t, res.HasMore)
		assert.Equal(t, 3, res.NextOffset)

		res, err = syncer.Sync(ctx, testTenant(), Options{Limit: 3, Offset: 6})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Processed)
		assert.False(t, res.HasMore)
	})

	t.Run("treats missing feature as soft success", func(t *testing.T) {
		client := &stubClient{} // searchContacts unset -> ErrNotSupported
		tenants := newMemTenantRepo(testTenant())
		syncer := NewContactSyncer(client, testTokens(), tenants, newMemContactRepo(), newMemCustomFieldRepo(), zap.NewNop())

		res, err := syncer.Sync(ctx, testTenant(), Options{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Processed)
		assert.False(t, res.HasMore)
	})

	t.Run("writes entity count after the page", func(t *testing.T) {
		external := []crm.Contact{{ExternalID: "c1", Email: "a@example.com"}}
		tn := testTenant()
		client := &stubClient{
			searchContacts: func(_ context.Context, _, _ string, req crm.PageRequest) (*crm.Page[crm.Contact], error) {
				return pageOf(external, req), nil
			},
		}
		tenants := newMemTenantRepo(tn)
		syncer := NewContactSyncer(client, testTokens(), tenants, newMemContactRepo(), newMemCustomFieldRepo(), zap.NewNop())

		_, err := syncer.Sync(ctx, tn, Options{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, tenants.counts["contacts"])
	})
}

func TestTranslateFieldKeys(t *testing.T) {
	keys := map[string]string{"fld_1": "contact.budget"}

	t.Run("translates mapped ids and keeps unmapped ones", func(t *testing.T) {
		out := translateFieldKeys(map[string]string{"fld_1": "5000", "fld_2": "red"}, keys)
		assert.Equal(t, "5000", out["contact.budget"])
		assert.Equal(t, "red", out["fld_2"])
	})

	t.Run("passes nil through", func(t *testing.T) {
		assert.Nil(t, translateFieldKeys(nil, keys))
	})
}
