package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerRejectsAfterBurst(t *testing.T) {
	rejected := 0
	rl := New(0.001, 2, WithRejectHandler(func(w http.ResponseWriter, r *http.Request) {
		rejected++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	handler := rl.Handler(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		request := httptest.NewRequest(http.MethodGet, "/users", nil)
		request.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, request)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, rejected)
}

func TestClientsAreIndependent(t *testing.T) {
	rl := New(0.001, 1)

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}

func TestCustomKeyFunc(t *testing.T) {
	rl := New(0.001, 1, WithKeyFunc(func(r *http.Request) string {
		return r.Header.Get("X-Real-IP")
	}))
	handler := rl.Handler(okHandler())

	send := func(ip string) int {
		request := httptest.NewRequest(http.MethodGet, "/users", nil)
		request.Header.Set("X-Real-IP", ip)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, request)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("192.168.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.168.1.1"))
	assert.Equal(t, http.StatusOK, send("192.168.1.2"))
}

func TestCleanupDropsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := New(1, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(2 * time.Minute)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.Cleanup(time.Minute))
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "fresh")
}
