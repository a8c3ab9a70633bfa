package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reseauechanges/annuaire/internal/common"
	"github.com/reseauechanges/annuaire/internal/logging"
	"github.com/reseauechanges/annuaire/internal/server/auth"
	"github.com/reseauechanges/annuaire/internal/server/blob"
	"github.com/reseauechanges/annuaire/internal/server/metrics"
	"github.com/reseauechanges/annuaire/internal/server/models"
	"github.com/reseauechanges/annuaire/internal/server/repositories/entries"
)

const testToken = "87800"

func newTestServer(t *testing.T) (http.Handler, *blob.MemoryStore) {
	t.Helper()

	store := blob.NewMemoryStore()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	repo := entries.NewBlobRepository(store, entries.Config{
		Layout:       entries.LayoutPerEntry,
		EntryPrefix:  "rers/entries/",
		AggregateKey: "rers/data.json",
		BackupPrefix: "rers/backups/",
	}, logger)

	reg := prometheus.NewRegistry()
	srv := NewServer(":0", repo, auth.NewGate(testToken), logger, metrics.New(reg), reg, 5*time.Second)
	return srv.Handler(), store
}

func doRequest(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set(common.AdminTokenHeaderName, token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEntry(t *testing.T, body []byte) models.Entry {
	t.Helper()
	var e models.Entry
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func listEntries(t *testing.T, h http.Handler) []models.Entry {
	t.Helper()
	rec := doRequest(t, h, http.MethodGet, "/entries", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Entries []models.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Entries
}

func TestCreateThenList(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/entries", testToken,
		`{"firstName":"Marie","lastName":"Dupont","phone":"0600000000",
		  "items":[{"type":"offre","skill":"Couture"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeEntry(t, rec.Body.Bytes())
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []models.Item{{Type: models.TypeOffer, Skill: "Couture"}}, created.Items)

	all := listEntries(t, h)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)
	assert.Equal(t, "Marie", all[0].FirstName)
}

func TestCreate_LegacyBodyShape(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/entries", testToken,
		`{"firstName":"Paul","lastName":"Martin","type":"offre","skills":"Couture, Tarot"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeEntry(t, rec.Body.Bytes())
	assert.Equal(t, []models.Item{
		{Type: models.TypeOffer, Skill: "Couture"},
		{Type: models.TypeOffer, Skill: "Tarot"},
	}, created.Items)
}

func TestCreate_Invalid(t *testing.T) {
	h, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing names", body: `{"items":[{"type":"offer","skill":"x"}]}`},
		{name: "no valid items", body: `{"firstName":"A","lastName":"B","items":[]}`},
		{name: "bad json", body: `{broken`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/entries", testToken, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreate_WithoutToken(t *testing.T) {
	h, store := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/entries", "",
		`{"firstName":"Marie","lastName":"Dupont","items":[{"type":"offer","skill":"Couture"}]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, store.Len(), "no entry may be created without the token")

	rec = doRequest(t, h, http.MethodPost, "/entries", "wrong-token",
		`{"firstName":"Marie","lastName":"Dupont","items":[{"type":"offer","skill":"Couture"}]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPatch_ReplacesItems(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/entries", testToken,
		`{"firstName":"Marie","lastName":"Dupont",
		  "items":[{"type":"offer","skill":"Couture"},{"type":"offer","skill":"Tarot"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeEntry(t, rec.Body.Bytes())

	rec = doRequest(t, h, http.MethodPatch, "/entries?id="+created.ID, testToken,
		`{"items":[{"type":"demande","skill":"Anglais"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decodeEntry(t, rec.Body.Bytes())
	assert.Equal(t, []models.Item{{Type: models.TypeDemand, Skill: "Anglais"}}, updated.Items)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.False(t, updated.UpdatedAt.IsZero())
}

func TestPatch_Errors(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPatch, "/entries?id=unknown", testToken, `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, http.MethodPatch, "/entries", testToken, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPatch, "/entries?id=x", testToken, `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPatch, "/entries?id=x", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDelete(t *testing.T) {
	h, store := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/entries", testToken,
		`{"firstName":"Marie","lastName":"Dupont","items":[{"type":"offer","skill":"Couture"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeEntry(t, rec.Body.Bytes())

	rec = doRequest(t, h, http.MethodDelete, "/entries?id="+created.ID, testToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"removed":true}`, rec.Body.String())

	// unknown id: 404, store untouched
	before := store.Len()
	rec = doRequest(t, h, http.MethodDelete, "/entries?id="+created.ID, testToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before, store.Len())

	rec = doRequest(t, h, http.MethodDelete, "/entries", testToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverwrite(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/entries", testToken,
		`{"firstName":"Old","lastName":"Entry","items":[{"type":"offer","skill":"x"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// wrapped form
	rec = doRequest(t, h, http.MethodPost, "/entries?overwrite=1", testToken,
		`{"entries":[{"firstName":"A","lastName":"B","type":"offre","skills":"Couture"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"replaced":1}`, rec.Body.String())

	all := listEntries(t, h)
	require.Len(t, all, 1)
	assert.Equal(t, "A", all[0].FirstName)

	// bare array form
	rec = doRequest(t, h, http.MethodPost, "/entries?overwrite=1", testToken,
		`[{"firstName":"C","lastName":"D","skills":"Piano"}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	all = listEntries(t, h)
	require.Len(t, all, 1)
	assert.Equal(t, "C", all[0].FirstName)

	// bad payloads
	rec = doRequest(t, h, http.MethodPost, "/entries?overwrite=1", testToken, `{"nope":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/entries?overwrite=1", "", `[]`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestList_StoreFailure(t *testing.T) {
	h, store := newTestServer(t)
	store.FailWith(fmt.Errorf("%w: transport down", common.ErrStoreUnavailable))

	rec := doRequest(t, h, http.MethodGet, "/entries", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodPut, "/entries", testToken, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doRequest(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	_ = listEntries(t, h)

	rec := doRequest(t, h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "annuaire_http_requests_total")
}
