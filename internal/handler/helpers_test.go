package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Services are nil: a malformed id must be answered before any call.
func idRoutes() http.Handler {
	logger := zap.NewNop()
	r := chi.NewRouter()
	r.Get("/orders/{orderId}", getOrderHandler(nil, logger))
	r.Post("/orders/{orderId}/status", transitionOrderHandler(nil, logger))
	r.Post("/orders/{orderId}/cancel", cancelOrderHandler(nil, logger))
	r.Post("/admin/orders/{orderId}/assign", assignOrderHandler(nil, logger))
	r.Get("/supplies/{requestId}", getSuppliesHandler(nil, logger))
	r.Post("/supplies/{requestId}/status", updateSuppliesStatusHandler(nil, logger))
	r.Post("/admin/supplies/{requestId}/assign", assignSuppliesHandler(nil, logger))
	r.Get("/incidents/{incidentId}", getIncidentHandler(nil, logger))
	r.Post("/incidents/{incidentId}/status", updateIncidentStatusHandler(nil, logger))
	r.Get("/incidents/{incidentId}/messages", listMessagesHandler(nil, logger))
	r.Post("/incidents/{incidentId}/messages", postMessageHandler(nil, logger))
	r.Get("/incidents/{incidentId}/stream", incidentStreamHandler(nil, nil, nil, logger))
	r.Post("/activities/{activityId}/read", markActivityReadHandler(nil, logger))
	r.Get("/plans/{planId}", getPlanHandler(nil, logger))
	r.Post("/plans/{planId}/subscribe", subscribeHandler(nil, logger))
	return r
}

func TestPathIDs_MalformedIsNotFound(t *testing.T) {
	routes := idRoutes()
	cases := []struct{ method, path string }{
		{http.MethodGet, "/orders/abc"},
		{http.MethodPost, "/orders/abc/status"},
		{http.MethodPost, "/orders/1/cancel"},
		{http.MethodPost, "/admin/orders/abc/assign"},
		{http.MethodGet, "/supplies/abc"},
		{http.MethodPost, "/supplies/abc/status"},
		{http.MethodPost, "/admin/supplies/abc/assign"},
		{http.MethodGet, "/incidents/abc"},
		{http.MethodPost, "/incidents/abc/status"},
		{http.MethodGet, "/incidents/abc/messages"},
		{http.MethodPost, "/incidents/abc/messages"},
		{http.MethodGet, "/incidents/abc/stream"},
		{http.MethodPost, "/activities/abc/read"},
		{http.MethodGet, "/plans/basic"},
		{http.MethodPost, "/plans/%7B6ba7b810-9dad-11d1-80b4-00c04fd430c8%7D/subscribe"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			routes.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestPathID(t *testing.T) {
	var got string
	var gotErr error
	r := chi.NewRouter()
	r.Get("/orders/{orderId}", func(w http.ResponseWriter, req *http.Request) {
		got, gotErr = pathID(req, "orderId", "service order")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/6BA7B810-9DAD-11D1-80B4-00C04FD430C8", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/6ba7b8109dad11d180b400c04fd430c8", nil))
	assert.Error(t, gotErr, "only the canonical form names a row")
}
