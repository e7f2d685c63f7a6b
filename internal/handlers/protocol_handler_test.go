package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "algoswarm/internal/errors"
	"algoswarm/internal/services"
	"algoswarm/internal/testutil"
)

func newProtocolRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	handler := NewProtocolHandler(services.NewRegistryService(db))
	router := gin.New()
	router.GET("/api/protocols", handler.List)
	router.GET("/api/protocols/:name", handler.Get)
	router.PUT("/api/admin/protocols/:name", handler.Update)
	return router
}

func TestProtocolEndpoints(t *testing.T) {
	t.Run("list returns all protocols", func(t *testing.T) {
		router := newProtocolRouter(t)

		recorder := doRequest(t, router, http.MethodGet, "/api/protocols", nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		body := parseJSON(t, recorder)
		protocols, ok := body["protocols"].([]interface{})
		if !ok || len(protocols) != 4 {
			t.Fatalf("expected 4 protocols, got %v", body["protocols"])
		}
	})

	t.Run("get by name", func(t *testing.T) {
		router := newProtocolRouter(t)

		recorder := doRequest(t, router, http.MethodGet, "/api/protocols/tinyman", nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		body := parseJSON(t, recorder)
		if body["deposit_method"] != "bootstrap" {
			t.Errorf("expected deposit method bootstrap, got %v", body["deposit_method"])
		}
	})

	t.Run("unknown protocol is a 404", func(t *testing.T) {
		router := newProtocolRouter(t)

		recorder := doRequest(t, router, http.MethodGet, "/api/protocols/parrotswap", nil)
		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}
		if code := errorCode(t, recorder); code != apperrors.ErrUnknownProtocol.Code {
			t.Errorf("expected UNKNOWN_PROTOCOL, got %s", code)
		}
	})

	t.Run("admin update persists", func(t *testing.T) {
		router := newProtocolRouter(t)

		recorder := doRequest(t, router, http.MethodPut, "/api/admin/protocols/tinyman", gin.H{
			"fee": 5000,
		})
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
		}

		recorder = doRequest(t, router, http.MethodGet, "/api/protocols/tinyman", nil)
		body := parseJSON(t, recorder)
		if body["fee"].(float64) != 5000 {
			t.Errorf("expected updated fee 5000, got %v", body["fee"])
		}
	})

	t.Run("invalid risk tier rejected", func(t *testing.T) {
		router := newProtocolRouter(t)

		recorder := doRequest(t, router, http.MethodPut, "/api/admin/protocols/tinyman", gin.H{
			"risk_tier": "extreme",
		})
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})
}
