package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/cryptofolio/backend/src/logger"
	"github.com/username/cryptofolio/backend/src/models"
	"github.com/username/cryptofolio/backend/src/services"
	"github.com/username/cryptofolio/backend/src/utils"
)

type ReportHandler struct {
	uploadService services.UploadService
}

func NewReportHandler(service services.UploadService) *ReportHandler {
	return &ReportHandler{
		uploadService: service,
	}
}

// yearParam reads the optional ?year= query parameter. Zero means the
// whole history.
func yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", raw)
	}
	return year, nil
}

func (h *ReportHandler) HandleGetTaxReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	year, err := yearParam(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.uploadService.GetTaxReport(userID, year)
	if err != nil {
		h.sendReportError(w, userID, err)
		return
	}

	if report.Disposals == nil {
		report.Disposals = []models.DisposalRecord{}
	}
	if report.Income == nil {
		report.Income = []models.IncomeRecord{}
	}
	if report.Balances == nil {
		report.Balances = []models.AssetBalance{}
	}

	currentETag, etagErr := utils.GenerateETag(report)
	w.Header().Set("Cache-Control", "no-cache, private")
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.L.Error("Error encoding tax report response", "userID", userID, "error", err)
	}
}

func (h *ReportHandler) HandleGetBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	balances, err := h.uploadService.GetBalances(userID)
	if err != nil {
		h.sendReportError(w, userID, err)
		return
	}
	if balances == nil {
		balances = []models.AssetBalance{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(balances)
}

func (h *ReportHandler) HandleGetDisposals(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	year, err := yearParam(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	disposals, err := h.uploadService.GetDisposals(userID, year)
	if err != nil {
		h.sendReportError(w, userID, err)
		return
	}
	if disposals == nil {
		disposals = []models.DisposalRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(disposals)
}

func (h *ReportHandler) HandleGetIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	year, err := yearParam(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	income, err := h.uploadService.GetIncome(userID, year)
	if err != nil {
		h.sendReportError(w, userID, err)
		return
	}
	if income == nil {
		income = []models.IncomeRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(income)
}

func (h *ReportHandler) sendReportError(w http.ResponseWriter, userID int64, err error) {
	if errors.Is(err, services.ErrProcessingFailed) {
		logger.L.Warn("Stored history cannot be processed into a report", "userID", userID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("transaction history cannot be processed: %v", err), http.StatusUnprocessableEntity)
		return
	}
	logger.L.Error("Error building report", "userID", userID, "error", err)
	utils.SendJSONError(w, "internal error", http.StatusInternalServerError)
}
