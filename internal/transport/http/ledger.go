package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

// LedgerReader is the minimal interface needed for ledger endpoints.
type LedgerReader interface {
	Recent(ctx context.Context, limit int) ([]domain.LedgerEntry, error)
	Verify(ctx context.Context) (domain.ChainReport, error)
}

// HandleRecentLedger returns the newest ledger entries. A missing or
// malformed limit falls back to the service default.
func HandleRecentLedger(svc LedgerReader, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		entries, err := svc.Recent(r.Context(), limit)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := recentLedgerResponse{Entries: make([]*ledgerEntryResponse, 0, len(entries)), Count: len(entries)}
		for i := range entries {
			resp.Entries = append(resp.Entries, toLedgerEntryResponse(&entries[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleVerifyLedger(svc LedgerReader, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Verify(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, verifyLedgerResponse{
			Valid:               report.Valid,
			Count:               report.Count,
			FirstInvalidEntryID: report.FirstInvalidEntryID,
		})
	}
}

type recentLedgerResponse struct {
	Entries []*ledgerEntryResponse `json:"entries"`
	Count   int                    `json:"count"`
}

type verifyLedgerResponse struct {
	Valid               bool   `json:"valid"`
	Count               int    `json:"count"`
	FirstInvalidEntryID string `json:"firstInvalidEntryId,omitempty"`
}
