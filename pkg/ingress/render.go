package ingress

import (
	"encoding/json"
	"net/http"

	"github.com/etcmint/mintgate/pkg/apierr"
	"github.com/etcmint/mintgate/pkg/log"
)

// errorEnvelope is the single wire shape for every error response.
type errorEnvelope struct {
	Error     string `json:"error"`
	Name      string `json:"name"`
	RequestID string `json:"requestId,omitempty"`
	TxHash    string `json:"txHash,omitempty"`
}

// WriteError is the terminal step of the ingress pipeline: it maps any
// error to the taxonomy and renders the error envelope. Server-side
// failures are logged with their full cause and correlation ID; client
// errors log only the message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apierr.From(err)
	requestID := RequestIDFrom(r.Context())
	logger := log.WithRequestID(requestID)

	if ae.Status >= http.StatusInternalServerError {
		logger.Error().Err(ae).Int("status", ae.Status).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logger.Debug().Int("status", ae.Status).Str("path", r.URL.Path).Str("reason", ae.Message).Msg("request rejected")
	}

	writeJSON(w, ae.Status, errorEnvelope{
		Error:     ae.PublicMessage(),
		Name:      ae.Name,
		RequestID: requestID,
		TxHash:    ae.TxHash,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
