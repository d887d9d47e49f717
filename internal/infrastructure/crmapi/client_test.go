package crmapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lpai/backend/internal/domain/crm"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(&Config{
		BaseURL:      srv.URL,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "https://example.com/onboarding/callback",
		APIVersion:   "2021-07-28",
		Timeout:      5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return client, srv
}

func TestClient_ExchangeCode(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the grant form and maps the token", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/oauth/token", r.URL.Path)
			assert.Equal(t, "2021-07-28", r.Header.Get("Version"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
			assert.Equal(t, "code-1", r.PostForm.Get("code"))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":      "tok",
				"refresh_token":     "ref",
				"expires_in":        86400,
				"token_type":        "Bearer",
				"userType":          "Location",
				"locationId":        "loc_1",
				"companyId":         "comp_1",
				"approvedLocations": []string{"loc_1"},
			})
		}))

		resp, err := client.ExchangeCode(ctx, "code-1")
		require.NoError(t, err)
		assert.Equal(t, "tok", resp.AccessToken)
		assert.Equal(t, "ref", resp.RefreshToken)
		assert.Equal(t, 86400, resp.ExpiresIn)
		assert.Equal(t, "Location", resp.UserType)
		assert.Equal(t, "loc_1", resp.LocationID)
		assert.Equal(t, "comp_1", resp.CompanyID)
		assert.Equal(t, []string{"loc_1"}, resp.ApprovedLocations)
	})

	t.Run("rejects an empty code without calling the API", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("unexpected request")
		}))
		_, err := client.ExchangeCode(ctx, "")
		assert.ErrorIs(t, err, crm.ErrValidation)
	})

	t.Run("treats a missing access token as an auth failure", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		_, err := client.ExchangeCode(ctx, "code-1")
		assert.ErrorIs(t, err, crm.ErrAuthFailure)
	})
}

func TestClient_RefreshAccessToken(t *testing.T) {
	ctx := context.Background()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "ref-1", r.PostForm.Get("refresh_token"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh",
			"refresh_token": "ref-2",
			"expires_in":    86400,
		})
	}))

	resp, err := client.RefreshAccessToken(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", resp.AccessToken)
	assert.Equal(t, "ref-2", resp.RefreshToken)

	_, err = client.RefreshAccessToken(ctx, "")
	assert.ErrorIs(t, err, crm.ErrValidation)
}

func TestClient_DeriveLocationToken(t *testing.T) {
	ctx := context.Background()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/locationToken", r.URL.Path)
		assert.Equal(t, "Bearer parent-tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "comp_1", r.PostForm.Get("companyId"))
		assert.Equal(t, "loc_1", r.PostForm.Get("locationId"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "minted",
			"expires_in":   86400,
			"userType":     "Location",
		})
	}))

	resp, err := client.DeriveLocationToken(ctx, "parent-tok", "comp_1", "loc_1")
	require.NoError(t, err)
	assert.Equal(t, "minted", resp.AccessToken)

	_, err = client.DeriveLocationToken(ctx, "", "comp_1", "loc_1")
	assert.ErrorIs(t, err, crm.ErrValidation)
}

func TestClient_GetLocation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/loc_1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"location":{"id":"loc_1","companyId":"comp_1","name":"Acme Plumbing","email":"ops@acme.test","timezone":"America/Denver"}}`))
	}))

	profile, err := client.GetLocation(context.Background(), "tok", "loc_1")
	require.NoError(t, err)
	assert.Equal(t, "loc_1", profile.ExternalID)
	assert.Equal(t, "Acme Plumbing", profile.Name)
	assert.Equal(t, "America/Denver", profile.Timezone)
}

func TestClient_SearchContacts(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts/", r.URL.Path)
		assert.Equal(t, "loc_1", r.URL.Query().Get("locationId"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "100", r.URL.Query().Get("skip"))
		_, _ = w.Write([]byte(`{
			"contacts": [
				{"id":"c1","firstName":"Jane","lastName":"Doe","email":"jane@acme.test"},
				{"id":"c2","phone":"+15551234567"}
			],
			"meta": {"total": 152}
		}`))
	}))

	page, err := client.SearchContacts(context.Background(), "tok", "loc_1", crm.PageRequest{Limit: 50, Offset: 100})
	require.NoError(t, err)
	assert.Equal(t, 152, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c1", page.Items[0].ExternalID)
	assert.Equal(t, "loc_1", page.Items[0].LocationID)
	assert.Equal(t, "Jane", page.Items[0].FirstName)
	assert.Equal(t, "+15551234567", page.Items[1].Phone)
}

func TestClient_ListAppointments_DateWindow(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/events", r.URL.Path)
		assert.Equal(t, "cal_1", r.URL.Query().Get("calendarId"))
		assert.Equal(t, start.Format(time.RFC3339), r.URL.Query().Get("startTime"))
		assert.Equal(t, end.Format(time.RFC3339), r.URL.Query().Get("endTime"))
		_, _ = w.Write([]byte(`{"events":[],"meta":{"total":0}}`))
	}))

	page, err := client.ListAppointments(context.Background(), "tok", "loc_1", "cal_1",
		crm.PageRequest{Limit: 50, StartDate: start, EndDate: end})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"404 means the feature is unavailable", http.StatusNotFound, `{}`, crm.ErrNotSupported},
		{"401 is an auth failure", http.StatusUnauthorized, `{}`, crm.ErrAuthFailure},
		{"403 is a permission denial", http.StatusForbidden, `{}`, crm.ErrPermissionDenied},
		{"429 is rate limiting", http.StatusTooManyRequests, `{}`, crm.ErrRateLimited},
		{"400 is a validation rejection", http.StatusBadRequest, `{"message":"bad"}`, crm.ErrValidation},
		{"422 is a validation rejection", http.StatusUnprocessableEntity, `{}`, crm.ErrValidation},
		{"500 is unexpected transport", http.StatusInternalServerError, `{}`, crm.ErrUnexpectedTransport},
		{"503 is unexpected transport", http.StatusServiceUnavailable, `{}`, crm.ErrUnexpectedTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			_, err := client.ListTags(context.Background(), "tok", "loc_1")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tags": not json`))
	}))
	_, err := client.ListTags(context.Background(), "tok", "loc_1")
	assert.ErrorIs(t, err, crm.ErrUnexpectedTransport)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		BaseURL:      "https://services.example.com",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "https://example.com/cb",
		APIVersion:   "2021-07-28",
		Timeout:      time.Second,
	}
	assert.NoError(t, valid.Validate())

	missingBase := valid
	missingBase.BaseURL = ""
	assert.Error(t, missingBase.Validate())

	missingVersion := valid
	missingVersion.APIVersion = ""
	assert.Error(t, missingVersion.Validate())

	noTimeout := valid
	noTimeout.Timeout = 0
	assert.NoError(t, noTimeout.Validate())
	assert.Equal(t, 30*time.Second, noTimeout.Timeout)
}
