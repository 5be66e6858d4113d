package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sipproxy-client/internal/httpapi"

	"github.com/gin-gonic/gin"
)

func TestHealthz_NoDeps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerPublicRoutes(r, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestProviderRoutes_RequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	registerProviderRoutes(r, deny, httpapi.Handlers{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/providers"},
		{http.MethodGet, "/v1/providers/p-1"},
		{http.MethodPost, "/v1/providers"},
		{http.MethodPatch, "/v1/providers/p-1"},
		{http.MethodDelete, "/v1/providers/p-1"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, w.Code)
		}
	}
}
