package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/paneladmin/internal/httputil"
	"github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/routes"
)

func usersRegistry() *routes.Registry {
	return routes.New("/v1/users", "users").
		Get("/test", "test", func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteJSON(w, http.StatusOK, map[string]any{"user_id": 1, "username": "testuser"})
		}).
		Get("/{id:[0-9]+}", "get", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestAttachRoutesMountsUnderPrefix(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AttachRoutes(usersRegistry(), "/api"))

	rec := serve(s.Handler(), http.MethodGet, "/api/v1/users/test")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "user_id").Int())
	assert.Equal(t, "testuser", gjson.Get(rec.Body.String(), "username").String())

	assert.Equal(t, []string{"GET /api/v1/users/test", "GET /api/v1/users/{id:[0-9]+}"}, s.Routes())
}

func TestAttachRoutesConflictIsAtomic(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AttachRoutes(usersRegistry(), "/api"))

	clash := routes.New("/v1/users").
		Get("/extra", "extra", func(w http.ResponseWriter, r *http.Request) {}).
		Get("/test", "dup", func(w http.ResponseWriter, r *http.Request) {})
	err := s.AttachRoutes(clash, "/api")
	require.ErrorIs(t, err, ErrRouteConflict)

	assert.Len(t, s.Routes(), 2)
	assert.Equal(t, http.StatusNotFound, serve(s.Handler(), http.MethodGet, "/api/v1/users/extra").Code)
}

func TestAttachRoutesRejectsInvalid(t *testing.T) {
	s := New(nil)
	assert.ErrorIs(t, s.AttachRoutes(nil, "/api"), ErrInvalidRoute)

	bad := routes.New("/x").Handle(http.MethodGet, "/a", "", nil)
	assert.ErrorIs(t, s.AttachRoutes(bad, "/api"), ErrInvalidRoute)
	assert.Empty(t, s.Routes())
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.AttachRoutes(usersRegistry(), "/api"))
	h := s.Handler()

	rec := serve(h, http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", gjson.Get(rec.Body.String(), "error.code").String())

	rec = serve(h, http.MethodDelete, "/api/v1/users/test")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", gjson.Get(rec.Body.String(), "error.code").String())
}

func TestMiddlewareOrderAndPreflightOutsideRouter(t *testing.T) {
	s := New(nil)
	var trail []string
	mark := func(tag string) middleware.Middleware {
		return middleware.AdaptWrapper(tag, func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trail = append(trail, tag)
				next.ServeHTTP(w, r)
			})
		})
	}
	require.NoError(t, s.AddMiddleware(middleware.NewCORSMiddleware(middleware.CORSOptions{AllowOrigins: []string{"*"}})))
	require.NoError(t, s.AddMiddleware(mark("first")))
	require.NoError(t, s.AddMiddleware(mark("second")))

	assert.Equal(t, []string{"cors", "first", "second"}, s.Middlewares())

	h := s.Handler()
	serve(h, http.MethodGet, "/unknown")
	assert.Equal(t, []string{"first", "second"}, trail)

	req := httptest.NewRequest(http.MethodOptions, "/api/unknown", nil)
	req.Header.Set("Origin", "https://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSealedAfterHandler(t *testing.T) {
	s := New(nil)
	_ = s.Handler()
	assert.ErrorIs(t, s.AddMiddleware(middleware.Base{}), ErrSealed)
	assert.ErrorIs(t, s.AttachRoutes(usersRegistry(), "/api"), ErrSealed)
}

func TestPanicBecomes500(t *testing.T) {
	s := New(nil)
	reg := routes.New("/boom").Get("", "panics", func(w http.ResponseWriter, r *http.Request) { panic("x") })
	require.NoError(t, s.AttachRoutes(reg, "/api"))

	rec := serve(s.Handler(), http.MethodGet, "/api/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", gjson.Get(rec.Body.String(), "error.code").String())
}
