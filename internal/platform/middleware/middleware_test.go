// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/waitgate/internal/platform/ctxutil"
	"github.com/taibuivan/waitgate/internal/platform/middleware"
)

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get("X-Request-ID"))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "client-id")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "client-id", seen)
}

/*
TestRealIP checks that forwarding headers are used only when trusted.
*/
func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trust   bool
		headers map[string]string
		want    string
	}{
		{"remote_addr", false, nil, "192.0.2.10"},
		{"untrusted_forwarded", false, map[string]string{"X-Forwarded-For": "203.0.113.5"}, "192.0.2.10"},
		{"trusted_forwarded", true, map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"trusted_real_ip", true, map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"trusted_without_headers", true, nil, "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := middleware.RealIP(tt.trust)(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
				seen = middleware.ClientIP(request)
			}))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = "192.0.2.10:43210"
			for key, value := range tt.headers {
				request.Header.Set(key, value)
			}
			handler.ServeHTTP(httptest.NewRecorder(), request)

			assert.Equal(t, tt.want, seen)
		})
	}
}

type countingHTTPObserver struct{ statuses []int }

func (observer *countingHTTPObserver) ObserveHTTP(_ string, status int) {
	observer.statuses = append(observer.statuses, status)
}

/*
TestStructuredLogger_PanicRecovery checks a panic becomes a logged 500 and is
still counted.
*/
func TestStructuredLogger_PanicRecovery(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))
	observer := &countingHTTPObserver{}

	handler := middleware.StructuredLogger(logger, observer)(middleware.PanicRecovery()(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
	))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, buffer.String(), "panic_recovered")
	assert.Contains(t, buffer.String(), "http_request_finished")
	assert.Equal(t, []int{http.StatusInternalServerError}, observer.statuses)
}

func TestCORS(t *testing.T) {
	handler := middleware.CORS([]string{"https://app.example.com"}, false)(
		http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) { writer.WriteHeader(http.StatusOK) }),
	)

	preflight := httptest.NewRequest(http.MethodOptions, "/api/v1/waitlist", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, preflight)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://app.example.com", recorder.Header().Get("Access-Control-Allow-Origin"))

	foreign := httptest.NewRequest(http.MethodGet, "/", nil)
	foreign.Header.Set("Origin", "https://evil.example.com")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, foreign)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}
