package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/isharax9/healthcare-system-sub000/internal/authz"
	"github.com/isharax9/healthcare-system-sub000/pkg/interfaces"
	"github.com/isharax9/healthcare-system-sub000/pkg/logger"
	"github.com/isharax9/healthcare-system-sub000/pkg/types"
)

type contextKey string

const principalKey contextKey = "principal"

// Handlers exposes the billing service over HTTP
type Handlers struct {
	service   interfaces.BillingService
	validator *authz.TokenValidator
	logger    *logger.Logger
}

// NewHandlers creates new billing HTTP handlers
func NewHandlers(service interfaces.BillingService, validator *authz.TokenValidator, log *logger.Logger) *Handlers {
	return &Handlers{
		service:   service,
		validator: validator,
		logger:    log,
	}
}

// RegisterRoutes configures HTTP routes for the billing service
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(h.authMiddleware)

	api.HandleFunc("/bills", h.createBillHandler).Methods("POST")
	api.HandleFunc("/bills", h.listBillsHandler).Methods("GET")
	api.HandleFunc("/bills/{id}", h.getBillHandler).Methods("GET")
	api.HandleFunc("/bills/{id}", h.deleteBillHandler).Methods("DELETE")
	api.HandleFunc("/bills/{id}/payments", h.recordPaymentHandler).Methods("POST")

	h.logger.Info("Billing service routes configured")
}

// authMiddleware validates the bearer token and stores the session
// principal in the request context
func (h *Handlers) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			h.writeErrorResponse(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		principal, err := h.validator.PrincipalFromToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			h.logger.Security("invalid_token", "", map[string]interface{}{
				"error": err.Error(),
			})
			h.writeErrorResponse(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principalFromRequest returns the session principal set by authMiddleware
func principalFromRequest(r *http.Request) (interfaces.PermissionSet, bool) {
	principal, ok := r.Context().Value(principalKey).(interfaces.PermissionSet)
	return principal, ok
}

// createBillRequest is the request body for bill creation
type createBillRequest struct {
	PatientID          string  `json:"patient_id"`
	ServiceDescription string  `json:"service_description"`
	Amount             float64 `json:"amount"`
}

// createBillResponse pairs the processed record with the run outcome
type createBillResponse struct {
	Bill      *types.LedgerRecord `json:"bill"`
	Processed bool                `json:"processed"`
}

// createBillHandler handles bill creation
func (h *Handlers) createBillHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		h.writeErrorResponse(w, http.StatusUnauthorized, "no principal in request context")
		return
	}

	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, processed, err := h.service.CreateBill(r.Context(), principal, req.PatientID, req.ServiceDescription, req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// Rejected and failed-to-save bills still return the record: the
	// status and audit trail tell the caller what happened
	status := http.StatusCreated
	if !processed {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSONResponse(w, status, &createBillResponse{Bill: record, Processed: processed})
}

// getBillHandler handles bill retrieval
func (h *Handlers) getBillHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		h.writeErrorResponse(w, http.StatusUnauthorized, "no principal in request context")
		return
	}

	record, err := h.service.GetBill(r.Context(), principal, mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, record)
}

// listBillsHandler handles bill listing with an optional patient filter
func (h *Handlers) listBillsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		h.writeErrorResponse(w, http.StatusUnauthorized, "no principal in request context")
		return
	}

	records, err := h.service.ListBills(r.Context(), principal, r.URL.Query().Get("patient_id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, records)
}

// deleteBillHandler handles bill deletion
func (h *Handlers) deleteBillHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		h.writeErrorResponse(w, http.StatusUnauthorized, "no principal in request context")
		return
	}

	if err := h.service.DeleteBill(r.Context(), principal, mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// recordPaymentRequest is the request body for recording a patient payment
type recordPaymentRequest struct {
	Amount float64 `json:"amount"`
}

// recordPaymentHandler handles out-of-pipeline patient payments
func (h *Handlers) recordPaymentHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromRequest(r)
	if !ok {
		h.writeErrorResponse(w, http.StatusUnauthorized, "no principal in request context")
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.service.RecordPatientPayment(r.Context(), principal, mux.Vars(r)["id"], req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, record)
}

// writeServiceError maps typed service errors to HTTP status codes
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Type {
		case types.ErrorTypeAuthorization:
			h.writeErrorResponse(w, http.StatusForbidden, svcErr.Message)
		case types.ErrorTypeValidation:
			h.writeErrorResponse(w, http.StatusBadRequest, svcErr.Message)
		case types.ErrorTypeNotFound:
			h.writeErrorResponse(w, http.StatusNotFound, svcErr.Message)
		default:
			h.writeErrorResponse(w, http.StatusInternalServerError, svcErr.Message)
		}
		return
	}

	h.logger.WithError(err).Error("Unhandled service error")
	h.writeErrorResponse(w, http.StatusInternalServerError, "internal server error")
}

// writeJSONResponse writes a JSON response with the given status code
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeErrorResponse writes a JSON error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, status int, message string) {
	h.writeJSONResponse(w, status, map[string]string{"error": message})
}
