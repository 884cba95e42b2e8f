package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msmehub/assetstore/pkg/assetstore"
	"github.com/msmehub/assetstore/pkg/assetstore/api"
	memoryledger "github.com/msmehub/assetstore/pkg/assetstore/ledger/memory"
	"github.com/msmehub/assetstore/pkg/assetstore/registry/memory"
)

var testAuth = jwtauth.New("HS256", []byte("test-secret"), nil)

func setupTestRouter(t *testing.T, extra ...assetstore.Option) http.Handler {
	t.Helper()

	options := append([]assetstore.Option{
		assetstore.WithRegistry(memory.New()),
		assetstore.WithLedger(memoryledger.New()),
	}, extra...)

	svc, err := assetstore.New(options...)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(testAuth))
		r.Use(jwtauth.Authenticator)
		r.Mount("/", api.NewHandler(svc).Routes())
	})
	return r
}

func tokenFor(t *testing.T, principal uuid.UUID) string {
	t.Helper()

	_, tokenString, err := testAuth.Encode(map[string]interface{}{"sub": principal.String()})
	require.NoError(t, err)
	return tokenString
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestRequestWithoutTokenIsRejected(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/assets", "", map[string]interface{}{
		"content_type": "text/plain",
		"data":         []byte("x"),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStoreAndGetAsset(t *testing.T) {
	router := setupTestRouter(t)
	caller := uuid.New()
	token := tokenFor(t, caller)

	rec := doJSON(t, router, http.MethodPost, "/assets", token, map[string]interface{}{
		"content_type": "text/plain",
		"data":         []byte("hello over http"),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID    uuid.UUID `json:"id"`
		Owner uuid.UUID `json:"owner"`
		Size  int       `json:"size"`
	}
	decode(t, rec, &created)
	assert.Equal(t, caller, created.Owner)
	assert.Equal(t, 15, created.Size)

	rec = doJSON(t, router, http.MethodGet, "/assets/"+created.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		ContentType string `json:"content_type"`
		Data        []byte `json:"data"`
	}
	decode(t, rec, &got)
	assert.Equal(t, "text/plain", got.ContentType)
	assert.Equal(t, []byte("hello over http"), got.Data)
}

func TestGetAssetNotFound(t *testing.T) {
	router := setupTestRouter(t)
	token := tokenFor(t, uuid.New())

	rec := doJSON(t, router, http.MethodGet, "/assets/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidIDIsBadRequest(t *testing.T) {
	router := setupTestRouter(t)
	token := tokenFor(t, uuid.New())

	rec := doJSON(t, router, http.MethodGet, "/assets/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChunkedFlow(t *testing.T) {
	router := setupTestRouter(t)
	caller := uuid.New()
	token := tokenFor(t, caller)

	rec := doJSON(t, router, http.MethodPost, "/assets/chunked", token, map[string]interface{}{
		"content_type": "application/octet-stream",
		"total_size":   6,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, rec, &session)

	base := "/assets/chunked/" + session.ID.String()
	for seq, part := range [][]byte{[]byte("abc"), []byte("def")} {
		rec = doJSON(t, router, http.MethodPost, base+"/chunks", token, map[string]interface{}{
			"seq":  seq,
			"data": part,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/finalize", token, map[string]interface{}{
		"expected_size": 6,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var sealed struct {
		Sealed   bool        `json:"sealed"`
		Checksum string      `json:"checksum"`
		ChunkIDs []uuid.UUID `json:"chunk_ids"`
	}
	decode(t, rec, &sealed)
	assert.True(t, sealed.Sealed)
	assert.NotEmpty(t, sealed.Checksum)
	require.Len(t, sealed.ChunkIDs, 2)

	// Raw chunk retrieval returns the stored bytes.
	req := httptest.NewRequest(http.MethodGet, "/chunks/"+sealed.ChunkIDs[0].String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	raw := httptest.NewRecorder()
	router.ServeHTTP(raw, req)
	require.Equal(t, http.StatusOK, raw.Code)
	assert.Equal(t, "application/octet-stream", raw.Header().Get("Content-Type"))
	assert.Equal(t, []byte("abc"), raw.Body.Bytes())

	// Appending after the seal conflicts.
	rec = doJSON(t, router, http.MethodPost, base+"/chunks", token, map[string]interface{}{
		"seq":  2,
		"data": []byte("ghi"),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestForeignSessionIsUnauthorized(t *testing.T) {
	router := setupTestRouter(t)
	ownerToken := tokenFor(t, uuid.New())
	intruderToken := tokenFor(t, uuid.New())

	rec := doJSON(t, router, http.MethodPost, "/assets/chunked", ownerToken, map[string]interface{}{
		"content_type": "application/octet-stream",
		"total_size":   3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, rec, &session)

	rec = doJSON(t, router, http.MethodPost, "/assets/chunked/"+session.ID.String()+"/chunks", intruderToken, map[string]interface{}{
		"seq":  0,
		"data": []byte("abc"),
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStorageFullMapsTo507(t *testing.T) {
	router := setupTestRouter(t, assetstore.WithGuard(assetstore.NewGuard(10, 0)))
	token := tokenFor(t, uuid.New())

	rec := doJSON(t, router, http.MethodPost, "/assets", token, map[string]interface{}{
		"content_type": "application/octet-stream",
		"data":         make([]byte, 11),
	})
	assert.Equal(t, http.StatusInsufficientStorage, rec.Code)
}

func TestAbortChunkedAsset(t *testing.T) {
	router := setupTestRouter(t)
	caller := uuid.New()
	token := tokenFor(t, caller)

	rec := doJSON(t, router, http.MethodPost, "/assets/chunked", token, map[string]interface{}{
		"content_type": "application/octet-stream",
		"total_size":   3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, rec, &session)

	rec = doJSON(t, router, http.MethodDelete, "/assets/chunked/"+session.ID.String(), token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/assets/chunked/"+session.ID.String(), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSweepEndpoint(t *testing.T) {
	router := setupTestRouter(t)
	token := tokenFor(t, uuid.New())

	rec := doJSON(t, router, http.MethodPost, "/admin/sweep", token, map[string]interface{}{
		"older_than_seconds": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/admin/sweep", token, map[string]interface{}{
		"older_than_seconds": 3600,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Swept int `json:"swept"`
	}
	decode(t, rec, &result)
	assert.Zero(t, result.Swept)
}
