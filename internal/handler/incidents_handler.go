package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/service"
)

// ============================================================
// Incidents: /v1/incidents
// ============================================================

func listIncidentsHandler(svc *service.IncidentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/incidents")
		defer span.End()

		f := domain.IncidentFilter{UserID: r.URL.Query().Get("user_id")}
		for _, s := range parseList(r, "status") {
			f.Statuses = append(f.Statuses, domain.IncidentStatus(s))
		}
		f.Page, f.PageSize = parsePagination(r)

		list, err := svc.List(ctx, ActorFromContext(ctx), f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createIncidentHandler(svc *service.IncidentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/incidents")
		defer span.End()

		var req domain.CreateIncidentRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		inc, err := svc.Create(ctx, ActorFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, inc)
	}
}

func getIncidentHandler(svc *service.IncidentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/incidents/{incidentId}")
		defer span.End()

		incidentID, err := pathID(r, "incidentId", "incident")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("incident.id", incidentID))

		detail, err := svc.Get(ctx, ActorFromContext(ctx), incidentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func updateIncidentStatusHandler(svc *service.IncidentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/incidents/{incidentId}/status")
		defer span.End()

		incidentID, err := pathID(r, "incidentId", "incident")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req domain.UpdateIncidentStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("incident.id", incidentID),
			attribute.String("incident.to", string(req.Status)),
		)

		inc, err := svc.UpdateStatus(ctx, ActorFromContext(ctx), incidentID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inc)
	}
}

func listMessagesHandler(svc *service.IncidentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/incidents/{incidentId}/messages")
		defer span.End()

		incidentID, err := pathID(r, "incidentId", "incident")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("incident.id", incidentID))

		msgs, err := svc.ListMessages(ctx, ActorFromContext(ctx), incidentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if msgs == nil {
			msgs = []domain.IncidentMessage{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// postMessageHandler returns the stored message so the sender can render it
// without waiting for the stream.
func postMessageHandler(svc *service.IncidentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/incidents/{incidentId}/messages")
		defer span.End()

		incidentID, err := pathID(r, "incidentId", "incident")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("incident.id", incidentID))

		var req domain.PostMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		msg, err := svc.PostMessage(ctx, ActorFromContext(ctx), incidentID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}
