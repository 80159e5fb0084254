package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"nftmarket/core/types"
	"nftmarket/gateway/middleware"
	"nftmarket/observability/logging"
)

// submitTransaction accepts a signed transaction and answers with its
// receipt once committed. Rejections carry the stable error code.
func (a *api) submitTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "BodyTooLarge", err)
			return
		}
		writeBadRequest(w, r, fmt.Errorf("read request body: %w", err))
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeBadRequest(w, r, errors.New("request body is empty"))
		return
	}

	var tx types.Transaction
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tx); err != nil {
		writeBadRequest(w, r, fmt.Errorf("decode transaction: %w", err))
		return
	}
	if len(tx.Signatures) == 0 {
		writeBadRequest(w, r, errors.New("transaction carries no signatures"))
		return
	}

	receipt, err := a.cfg.Ledger.Submit(r.Context(), &tx)
	if err != nil {
		status, code := classify(err)
		attrs := []any{
			slog.String("type", tx.Type.String()),
			slog.String("code", code),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.Any("error", err),
		}
		for i, sig := range tx.Signatures {
			attrs = append(attrs, logging.MaskField(fmt.Sprintf("signature_%d", i), sig.String()))
		}
		a.logger.DebugContext(r.Context(), "gateway: transaction rejected", attrs...)
		writeError(w, r, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
