package handlers

import (
	"fmt"
	"net/http"

	"github.com/username/fundrecon/backend/src/services"
)

// DownloadHandler serves the generated exchange files of the latest pass.
type DownloadHandler struct {
	reconService services.ReconService
}

func NewDownloadHandler(reconService services.ReconService) *DownloadHandler {
	return &DownloadHandler{reconService: reconService}
}

// HandleUploadFile serves the exchange collateral upload file.
func (h *DownloadHandler) HandleUploadFile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "text/plain; charset=utf-8", h.reconService.UploadFile)
}

// HandleLimitsFile serves the RMS trading-limits file.
func (h *DownloadHandler) HandleLimitsFile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "text/plain; charset=utf-8", h.reconService.LimitsFile)
}

// HandleWorksheet serves the review spreadsheet.
func (h *DownloadHandler) HandleWorksheet(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", h.reconService.Worksheet)
}

func (h *DownloadHandler) serve(w http.ResponseWriter, r *http.Request, contentType string, build func(int64, string) (string, []byte, error)) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	name, data, err := build(userID, r.PathValue("domain"))
	if err != nil {
		sendReconError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}
