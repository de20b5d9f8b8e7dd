/*
handlers.go - HTTP API handlers for the contractor marketplace

PURPOSE:
  Exposes the marketplace service via REST API. Handles HTTP request and
  response, JSON serialization, and delegates every rule to the
  marketplace package.

ENDPOINTS:
  Caller profile required (see middleware.go):
    GET    /contracts/{id}              Contract, client only
    GET    /contracts                   Caller's active contracts
    GET    /jobs/unpaid                 Caller's unpaid jobs on active contracts
    POST   /jobs/{job_id}/pay           Pay a job from the caller's balance
    POST   /balances/deposit/{userId}   Deposit into a client's balance

  Admin (no caller profile):
    GET    /admin/best-profession?start&end
    GET    /admin/best-client?start&end&limit

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (ids, amounts, dates, limit)
  - 401: No resolvable caller profile
  - 403: Caller is not the contract's client
  - 404: Entity absent or hidden from the caller, or no report data
  - 406: Insufficient funds, deposit limit exceeded
  - 409: Job already paid
  - 500: Store failures (details are not exposed)

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Caller profile resolution
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/contractor-payments/auth"
	"github.com/warp/contractor-payments/marketplace"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *marketplace.Service
	Tokens  *auth.Parser
}

// NewHandler creates a handler over the service. tokens may be nil, in which
// case only the profile_id header identifies callers.
func NewHandler(svc *marketplace.Service, tokens *auth.Parser) *Handler {
	return &Handler{Service: svc, Tokens: tokens}
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// GetContract returns a single contract owned by the caller.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	caller := MustProfile(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contract id", err)
		return
	}

	contract, err := h.Service.GetContract(r.Context(), marketplace.ContractID(id), caller.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toContractDTO(contract))
}

// ListContracts returns the caller's non-terminated contracts.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	caller := MustProfile(r.Context())

	contracts, err := h.Service.ListContracts(r.Context(), caller.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toContractDTOs(contracts))
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

// ListUnpaidJobs returns unpaid jobs on the caller's active contracts.
func (h *Handler) ListUnpaidJobs(w http.ResponseWriter, r *http.Request) {
	caller := MustProfile(r.Context())

	jobs, err := h.Service.ListUnpaidJobs(r.Context(), caller.ID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toJobDTOs(jobs))
}

// PayJob moves the job's price from the caller to the contractor.
func (h *Handler) PayJob(w http.ResponseWriter, r *http.Request) {
	caller := MustProfile(r.Context())

	id, err := pathID(r, "job_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid job id", err)
		return
	}

	job, err := h.Service.PayJob(r.Context(), marketplace.JobID(id), caller)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toJobDTO(job))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// Deposit adds funds to a client's balance.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id", err)
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	profile, err := h.Service.DepositFunds(r.Context(), marketplace.ProfileID(id), req.Amount)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(profile))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// BestProfession returns the profession that earned the most in the range.
func (h *Handler) BestProfession(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	best, found, err := h.Service.BestProfession(r.Context(), rng)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "No paid jobs in range", nil)
		return
	}

	writeJSON(w, http.StatusOK, BestProfessionDTO{
		Profession: best.Profession,
		FullName:   best.FullName,
		Paid:       best.TotalPaid.InexactFloat64(),
	})
}

// BestClients returns the clients that paid the most in the range.
func (h *Handler) BestClients(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	limit := marketplace.DefaultBestClientsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
	}

	totals, err := h.Service.BestClients(r.Context(), rng, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBestClientDTOs(totals))
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps marketplace errors to responses. Store failures are
// logged and reported without details.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, status, message, nil)
		return
	}
	writeError(w, status, message, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, marketplace.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, marketplace.ErrForbidden):
		return http.StatusForbidden, "Only the contract's client can do this"
	case errors.Is(err, marketplace.ErrInsufficientFunds):
		return http.StatusNotAcceptable, "Insufficient funds"
	case errors.Is(err, marketplace.ErrLimitExceeded):
		return http.StatusNotAcceptable, "Deposit amount is more than 25% over total of jobs to pay"
	case errors.Is(err, marketplace.ErrAlreadyPaid):
		return http.StatusConflict, "Job already paid"
	case errors.Is(err, marketplace.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid input"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

// parseDateRange reads start and end. Both accept RFC3339 or YYYY-MM-DD; a
// date-only end covers the whole day.
func parseDateRange(r *http.Request) (marketplace.DateRange, error) {
	q := r.URL.Query()
	start, err := parseDate(q.Get("start"), false)
	if err != nil {
		return marketplace.DateRange{}, err
	}
	end, err := parseDate(q.Get("end"), true)
	if err != nil {
		return marketplace.DateRange{}, err
	}
	rng := marketplace.DateRange{Start: start, End: end}
	return rng, rng.Validate()
}

func parseDate(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("start and end are required")
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("dates must be RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return t, nil
}
