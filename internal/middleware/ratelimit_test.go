package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()
	handler := rl.Middleware(okHandler())

	for i := 0; i < 2; i++ {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request("10.0.0.1:1234"))
		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, recorder.Code)
		}
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request("10.0.0.1:1234"))
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", recorder.Code)
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()
	handler := rl.Middleware(okHandler())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request("10.0.0.1:1234"))
	if recorder.Code != http.StatusOK {
		t.Fatalf("first client: expected 200, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request("10.0.0.1:9999"))
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("same IP, new port: expected 429, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request("10.0.0.2:1234"))
	if recorder.Code != http.StatusOK {
		t.Fatalf("different IP: expected 200, got %d", recorder.Code)
	}
}
