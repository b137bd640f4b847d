package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/api/middleware"
)

func TestAPIKey(t *testing.T) {
	testAPIKey := "test-api-key-12345"

	newHandler := func(called *bool) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			*called = true
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("rejects request without API key", func(t *testing.T) {
		handlerCalled := false
		mw := middleware.APIKey(testAPIKey)(newHandler(&handlerCalled))

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if handlerCalled {
			t.Error("Expected request not to complete.")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", w.Code)
		}

		var response map[string]string
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if response["details"] != "Missing API key" {
			t.Errorf("Expected 'Missing API key' error, got '%s'", response["details"])
		}
	})

	t.Run("rejects request with invalid API key", func(t *testing.T) {
		handlerCalled := false
		mw := middleware.APIKey(testAPIKey)(newHandler(&handlerCalled))

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("X-API-Key", "invalid")
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if handlerCalled {
			t.Error("Expected request not to complete.")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", w.Code)
		}

		var response map[string]string
		//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
		json.NewDecoder(w.Body).Decode(&response)

		if response["details"] != "Invalid API key" {
			t.Errorf("Expected 'Invalid API key' error, got '%s'", response["details"])
		}
	})

	t.Run("allows request with valid API key", func(t *testing.T) {
		handlerCalled := false
		mw := middleware.APIKey(testAPIKey)(newHandler(&handlerCalled))

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set("X-API-Key", testAPIKey)
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if !handlerCalled {
			t.Error("Expected handler to complete.")
		}
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})

	t.Run("empty configured key disables the check", func(t *testing.T) {
		handlerCalled := false
		mw := middleware.APIKey("")(newHandler(&handlerCalled))

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)

		if !handlerCalled {
			t.Error("Expected handler to complete.")
		}
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})
}
