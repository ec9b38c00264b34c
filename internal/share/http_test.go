package share

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/abduss/foldershare/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShareRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	v1 := router.Group("/v1")
	protected := v1.Group("")
	protected.Use(func(c *gin.Context) {
		auth.SetUser(c, auth.ContextUser{ID: f.owner.String()})
		c.Next()
	})
	RegisterRoutes(protected, v1, f.service, nil)
	return router
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHTTPShareLifecycle(t *testing.T) {
	f := newFixture(t)
	f.addFile(f.shared.ID, "beach.jpg")
	router := newShareRouter(f)

	rec := serve(router, http.MethodPost, "/v1/folders/"+f.shared.ID.String()+"/shares?days=abc")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Share shareResponse `json:"share"`
		Days  int           `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 7, created.Days)
	assert.Equal(t, StatusActive, created.Share.Status)

	link, err := url.Parse(created.Share.URL)
	require.NoError(t, err)
	assert.Equal(t, "share.example", link.Host)

	rec = serve(router, http.MethodGet, link.Path)
	require.Equal(t, http.StatusOK, rec.Code)
	var resolved resolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.Equal(t, StatusActive, resolved.Status)
	assert.Equal(t, "holiday", resolved.Folder.Name)
	require.Len(t, resolved.Files, 1)
	assert.NotContains(t, rec.Body.String(), "owner_id")
	assert.NotContains(t, rec.Body.String(), f.owner.String())

	rec = serve(router, http.MethodGet, "/v1/share/"+created.Share.Token+"/qr.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	f.now = created.Share.ExpiresAt
	rec = serve(router, http.MethodGet, "/v1/share/"+created.Share.Token)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.JSONEq(t, `{"status":"expired","expires_at":"`+created.Share.ExpiresAt.Format("2006-01-02T15:04:05Z07:00")+`"}`, rec.Body.String())

	rec = serve(router, http.MethodGet, "/v1/folders/"+f.shared.ID.String()+"/shares")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"expired"`)
}

func TestHTTPSharedDownload(t *testing.T) {
	f := newFixture(t)
	inside := f.addFile(f.shared.ID, "beach.jpg")
	outside := f.addFile(f.other.ID, "return.pdf")
	router := newShareRouter(f)

	sh, err := f.service.CreateShare(context.Background(), f.owner, f.shared.ID, 7)
	require.NoError(t, err)

	rec := serve(router, http.MethodGet, "/v1/share/"+sh.Token+"/files/"+inside.ID.String()+"/download")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Body.String())

	rec = serve(router, http.MethodGet, "/v1/share/"+sh.Token+"/files/"+outside.ID.String()+"/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodGet, "/v1/share/unknown/files/"+uuid.NewString()+"/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPCreateShareForeignFolder(t *testing.T) {
	f := newFixture(t)
	router := newShareRouter(f)

	rec := serve(router, http.MethodPost, "/v1/folders/"+uuid.NewString()+"/shares")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
