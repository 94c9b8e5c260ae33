// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

func TestWithLogging(t *testing.T) {
	handlerCalled := false
	testHandler := func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	}

	wrappedHandler := WithLogging(testHandler)

	req := httptest.NewRequest("GET", "/test-path", nil)
	w := httptest.NewRecorder()

	wrappedHandler(w, req)

	if !handlerCalled {
		t.Error("Expected handler to be called")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "success" {
		t.Errorf("Expected body 'success', got '%s'", w.Body.String())
	}
}

func TestWithLogging_PreservesResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"OK", http.StatusOK, "ok"},
		{"Created", http.StatusCreated, `{"id":"123"}`},
		{"BadRequest", http.StatusBadRequest, `{"error":"bad request"}`},
		{"NotFound", http.StatusNotFound, "not found"},
		{"InternalError", http.StatusInternalServerError, "error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				w.Write([]byte(tc.body))
			})

			req := httptest.NewRequest("POST", "/api/test", nil)
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if w.Body.String() != tc.body {
				t.Errorf("Expected body '%s', got '%s'", tc.body, w.Body.String())
			}
		})
	}
}

func TestJSONResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		data       any
		expected   string
	}{
		{
			name:       "simple struct",
			statusCode: http.StatusOK,
			data:       map[string]string{"message": "hello"},
			expected:   `{"message":"hello"}`,
		},
		{
			name:       "vote status",
			statusCode: http.StatusOK,
			data:       models.MyVoteResponse{PollID: "abc123", HasVoted: true},
			expected:   `{"poll_id":"abc123","has_voted":true}`,
		},
		{
			name:       "error response",
			statusCode: http.StatusBadRequest,
			data:       models.ErrorResponse{Error: "Bad Request", Message: "missing field"},
			expected:   `{"error":"Bad Request","message":"missing field"}`,
		},
		{
			name:       "array data",
			statusCode: http.StatusOK,
			data:       []string{"a", "b", "c"},
			expected:   `["a","b","c"]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			JSONResponse(w, tc.statusCode, tc.data)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
			}

			// Trim newline added by Encode
			body := strings.TrimSpace(w.Body.String())
			if body != tc.expected {
				t.Errorf("Expected body '%s', got '%s'", tc.expected, body)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error != "Bad Request" {
		t.Errorf("Expected error 'Bad Request', got '%s'", resp.Error)
	}
	if resp.Message != "Invalid JSON" {
		t.Errorf("Expected message 'Invalid JSON', got '%s'", resp.Message)
	}
}

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		expectedCode int
		expectedKind string
		expectedMsg  string
	}{
		{"validation", apperr.Validation("question is required"), http.StatusBadRequest, "validation", "question is required"},
		{"not found", apperr.NotFound("poll", "abc"), http.StatusNotFound, "not_found", "poll abc not found"},
		{"conflict", apperr.Conflict("already voted"), http.StatusConflict, "conflict", "already voted"},
		{"unauthenticated", apperr.Unauthenticated("token expired"), http.StatusUnauthorized, "unauthenticated", "token expired"},
		{"store", apperr.Store("insert vote", errors.New("connection refused")), http.StatusServiceUnavailable, "store", "store operation failed"},
		{"wrapped", fmt.Errorf("handler: %w", apperr.NotFound("poll", "x")), http.StatusNotFound, "not_found", "poll x not found"},
		{"deadline", apperr.Store("get poll", context.DeadlineExceeded), http.StatusServiceUnavailable, "store", "store operation failed"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal", "internal error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/polls/x", nil)

			WriteError(w, r, tc.err)

			if w.Code != tc.expectedCode {
				t.Errorf("Expected status %d, got %d", tc.expectedCode, w.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Kind != tc.expectedKind {
				t.Errorf("Expected kind '%s', got '%s'", tc.expectedKind, resp.Kind)
			}
			if resp.Message != tc.expectedMsg {
				t.Errorf("Expected message '%s', got '%s'", tc.expectedMsg, resp.Message)
			}
			if strings.Contains(w.Body.String(), "connection refused") {
				t.Error("Store failure cause leaked to the client")
			}
		})
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		body := `{"question":"Lunch?","options":["Pizza","Tacos"]}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.CreatePollRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.Question != "Lunch?" {
			t.Errorf("Expected question 'Lunch?', got '%s'", parsed.Question)
		}
		if len(parsed.Options) != 2 {
			t.Errorf("Expected 2 options, got %d", len(parsed.Options))
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{invalid json}`))

		var parsed models.CreatePollRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(""))

		var parsed models.CreatePollRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for empty body")
		}
	})

	t.Run("missing option index stays nil", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{}`))

		var parsed models.SubmitVoteRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if parsed.OptionIndex != nil {
			t.Error("Expected nil option index")
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		big := `{"question":"` + strings.Repeat("x", maxBodyBytes) + `"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(big))

		var parsed models.CreatePollRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for oversized body")
		}
	})

	t.Run("body is closed after parsing", func(t *testing.T) {
		bodyReader := io.NopCloser(bytes.NewReader([]byte(`{"question":"Test"}`)))
		req := httptest.NewRequest("POST", "/", bodyReader)

		var parsed models.CreatePollRequest
		_ = ParseJSONBody(req, &parsed)

		remaining, _ := io.ReadAll(req.Body)
		if len(remaining) > 0 {
			t.Error("Expected body to be consumed/closed")
		}
	})
}

func TestCORS(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("handled"))
	})

	t.Run("preflight with any origin allowed", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/polls", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		CORS(nil)(nextHandler).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "" {
			t.Errorf("Expected empty body for preflight, got '%s'", w.Body.String())
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
			t.Error("Expected Access-Control-Allow-Origin to match request origin")
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
			t.Error("Expected Authorization in allowed headers")
		}
	})

	t.Run("listed origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls", nil)
		req.Header.Set("Origin", "https://polls.example.com")
		w := httptest.NewRecorder()

		CORS([]string{"https://polls.example.com"})(nextHandler).ServeHTTP(w, req)

		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "https://polls.example.com" {
			t.Error("Expected Access-Control-Allow-Origin to reflect listed origin")
		}
	})

	t.Run("unlisted origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()

		CORS([]string{"https://polls.example.com"})(nextHandler).ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected no allow-origin header, got '%s'", got)
		}
	})

	t.Run("request without origin defaults to wildcard", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls", nil)
		w := httptest.NewRecorder()

		CORS(nil)(nextHandler).ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("Expected Access-Control-Allow-Origin to default to '*'")
		}
	})
}

func TestRecover(t *testing.T) {
	testCases := []struct {
		name           string
		panicValue     any
		expectedStatus int
		expectedKind   string
		hiddenText     string
	}{
		{
			name:           "string panic",
			panicValue:     "render failed",
			expectedStatus: http.StatusInternalServerError,
			expectedKind:   "internal",
			hiddenText:     "render failed",
		},
		{
			name:           "plain error",
			panicValue:     errors.New("nil map write"),
			expectedStatus: http.StatusInternalServerError,
			expectedKind:   "internal",
			hiddenText:     "nil map",
		},
		{
			name:           "store error",
			panicValue:     apperr.Store("list votes", errors.New("connection reset")),
			expectedStatus: http.StatusInternalServerError,
			expectedKind:   "internal",
			hiddenText:     "connection reset",
		},
		{
			name:           "not found error",
			panicValue:     apperr.NotFound("poll", "x"),
			expectedStatus: http.StatusNotFound,
			expectedKind:   "not_found",
		},
		{
			name:           "wrapped not found error",
			panicValue:     fmt.Errorf("load view: %w", apperr.NotFound("poll", "x")),
			expectedStatus: http.StatusNotFound,
			expectedKind:   "not_found",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tc.panicValue)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/polls/x", nil))

			if w.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, w.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Kind != tc.expectedKind {
				t.Errorf("Expected kind '%s', got '%s'", tc.expectedKind, resp.Kind)
			}
			if resp.RecoverTo != "/" {
				t.Errorf("Expected recover_to '/', got '%s'", resp.RecoverTo)
			}
			if tc.hiddenText != "" && strings.Contains(resp.Message, tc.hiddenText) {
				t.Error("Panic value leaked to the client")
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := Timeout(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if !ok {
		t.Fatal("Expected a request deadline")
	}
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("Deadline too far in the future: %v", deadline)
	}
}

func TestBearerToken(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"bearer header", "Bearer abc.def", "", "abc.def"},
		{"lowercase scheme", "bearer abc", "", "abc"},
		{"other scheme", "Basic dXNlcjpwYXNz", "", ""},
		{"query parameter", "", "?token=xyz", "xyz"},
		{"header wins", "Bearer abc", "?token=xyz", "abc"},
		{"none", "", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/polls/1/live"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if got := BearerToken(req); got != tc.want {
				t.Errorf("Expected '%s', got '%s'", tc.want, got)
			}
		})
	}
}

func TestWithIdentity(t *testing.T) {
	provider := auth.NewProvider("secret", time.Hour, store.NewMemoryStore())
	session, err := provider.SignIn(context.Background(), "alice")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	var seen *auth.Identity
	handler := WithIdentity(provider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := auth.FromContext(r.Context()); ok {
			seen = &id
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous", func(t *testing.T) {
		seen = nil
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/polls", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if seen != nil {
			t.Error("Expected no identity")
		}
	})

	t.Run("valid token", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest("GET", "/polls", nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if seen == nil || seen.ProfileID != session.Profile.ID {
			t.Errorf("Expected identity %s, got %+v", session.Profile.ID, seen)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest("GET", "/polls", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", w.Code)
		}
		if seen != nil {
			t.Error("Handler should not run for a rejected token")
		}
	})
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr with port", "192.168.1.10:54321", nil, "192.168.1.10"},
		{"ipv6 remote addr", "[::1]:8080", nil, "::1"},
		{"x-forwarded-for chain", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"x-real-ip", "10.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tc.want {
				t.Errorf("Expected '%s', got '%s'", tc.want, got)
			}
		})
	}
}
