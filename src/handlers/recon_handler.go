package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/username/fundrecon/backend/src/config"
	"github.com/username/fundrecon/backend/src/logger"
	"github.com/username/fundrecon/backend/src/models"
	"github.com/username/fundrecon/backend/src/processors"
	"github.com/username/fundrecon/backend/src/security/validation"
	"github.com/username/fundrecon/backend/src/services"
	"github.com/username/fundrecon/backend/src/utils"
)

// uploadFields are the multipart form fields a reconciliation upload may
// carry. Which of them are required depends on the domain; the handler only
// collects what is present.
var uploadFields = []string{"ledger", "allocation", "margin", "exclusions"}

type ReconHandler struct {
	reconService services.ReconService
}

func NewReconHandler(reconService services.ReconService) *ReconHandler {
	return &ReconHandler{reconService: reconService}
}

// HandleProcess runs a reconciliation pass over the uploaded files and
// replaces any previous result for this user and domain.
func (h *ReconHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}
	domain := r.PathValue("domain")

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes)
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		sendJSONError(w, "Failed to parse multipart form (too large?)", http.StatusBadRequest)
		return
	}

	files := make(models.FileSet)
	for _, field := range uploadFields {
		file, header, err := r.FormFile(field)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			sendJSONError(w, "Failed to read uploaded file: "+field, http.StatusBadRequest)
			return
		}

		if err := validation.ValidateClientContentType(header.Header.Get("Content-Type")); err != nil {
			file.Close()
			sendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}
		data, err := validation.ReadAll(file, config.Cfg.MaxUploadSizeBytes)
		file.Close()
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		if _, err := validation.ValidateFileContent(data); err != nil {
			sendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}

		files[field] = models.InputFile{
			Field:    field,
			Filename: header.Filename,
			Data:     data,
		}
	}

	unallocatedFund := decimal.Zero
	if raw := r.FormValue("unallocated_fund"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			sendJSONError(w, "Invalid unallocated_fund value", http.StatusBadRequest)
			return
		}
		unallocatedFund = parsed
	}

	result, err := h.reconService.Process(userID, domain, files, unallocatedFund)
	if err != nil {
		sendReconError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleResults serves the latest result with an ETag so the dashboard can
// poll cheaply.
func (h *ReconHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	result, err := h.reconService.Latest(userID, r.PathValue("domain"))
	if err != nil {
		sendReconError(w, err)
		return
	}

	etag, err := utils.GenerateETag(result)
	if err == nil {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *ReconHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	summary, err := h.reconService.Summary(userID, r.PathValue("domain"))
	if err != nil {
		sendReconError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// HandleEditRecord applies an inline ledger-amount correction and returns the
// fully recomputed result.
func (h *ReconHandler) HandleEditRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}
	clientKey := r.PathValue("clientKey")

	var payload struct {
		LedgerAmount string `json:"ledger_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(payload.LedgerAmount)
	if err != nil {
		sendJSONError(w, "Invalid ledger_amount value", http.StatusBadRequest)
		return
	}

	result, err := h.reconService.EditLedgerAmount(userID, r.PathValue("domain"), clientKey, amount)
	if err != nil {
		sendReconError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleUnallocatedFund updates the operator-entered unallocated fund figure
// and returns the recomputed result.
func (h *ReconHandler) HandleUnallocatedFund(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	var payload struct {
		UnallocatedFund string `json:"unallocated_fund"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(payload.UnallocatedFund)
	if err != nil {
		sendJSONError(w, "Invalid unallocated_fund value", http.StatusBadRequest)
		return
	}

	result, err := h.reconService.SetUnallocatedFund(userID, r.PathValue("domain"), amount)
	if err != nil {
		sendReconError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleRuns lists the recent pass audit rows for the authenticated user.
func (h *ReconHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	runs, err := h.reconService.Runs(userID, limit)
	if err != nil {
		logger.L.Error("Failed to list reconciliation runs", "userID", userID, "error", err)
		sendJSONError(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"runs": runs})
}

// sendReconError maps the service error taxonomy onto HTTP statuses.
func sendReconError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownDomain):
		sendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrNoResult):
		sendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, processors.ErrUnknownClient):
		sendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, processors.ErrMissingInput),
		errors.Is(err, processors.ErrFilenameMismatch):
		sendJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		logger.L.Error("Reconciliation request failed", "error", err)
		sendJSONError(w, "Reconciliation failed: "+err.Error(), http.StatusUnprocessableEntity)
	}
}
