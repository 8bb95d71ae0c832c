package api

import (
	"encoding/json"
	"net/http"

	"github.com/etcmint/mintgate/pkg/ingress"
	"github.com/etcmint/mintgate/pkg/types"
)

// resourceEnvelope wraps a single object returned by a point read.
type resourceEnvelope struct {
	Data      any    `json:"data"`
	RequestID string `json:"requestId,omitempty"`
}

// pageInfo describes the window a paginated response covers.
type pageInfo struct {
	Total   uint64 `json:"total"`
	Limit   uint64 `json:"limit"`
	Offset  uint64 `json:"offset"`
	HasMore bool   `json:"hasMore"`
}

// paginatedEnvelope wraps a list read. HasMore is true iff offset plus
// the returned count is still short of the total.
type paginatedEnvelope struct {
	Data       []types.Token `json:"data"`
	Pagination pageInfo      `json:"pagination"`
	RequestID  string        `json:"requestId,omitempty"`
}

// asyncOpEnvelope wraps every state-changing response. Status reflects
// the ledger at response time, which for a wait-for-receipt handler is a
// terminal state.
type asyncOpEnvelope struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	TxHash    string         `json:"txHash"`
	Data      map[string]any `json:"data"`
	RequestID string         `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeResource(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, resourceEnvelope{Data: data, RequestID: ingress.RequestIDFrom(r.Context())})
}

func writePage(w http.ResponseWriter, r *http.Request, items []types.Token, total, limit, offset uint64) {
	if items == nil {
		items = []types.Token{}
	}
	writeJSON(w, http.StatusOK, paginatedEnvelope{
		Data: items,
		Pagination: pageInfo{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+uint64(len(items)) < total,
		},
		RequestID: ingress.RequestIDFrom(r.Context()),
	})
}

func writeAsyncOp(w http.ResponseWriter, r *http.Request, op types.Operation, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	writeJSON(w, http.StatusCreated, asyncOpEnvelope{
		ID:        op.ID,
		Status:    string(op.Status),
		TxHash:    op.TxHash,
		Data:      data,
		RequestID: ingress.RequestIDFrom(r.Context()),
	})
}
