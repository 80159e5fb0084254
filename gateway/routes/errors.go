package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"nftmarket/core/ledger"
	"nftmarket/gateway/middleware"
	"nftmarket/native/market"
	"nftmarket/native/metadata"
	"nftmarket/native/token"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

var statusByError = []struct {
	err    error
	status int
	code   string
}{
	{ledger.ErrAlreadyApplied, http.StatusConflict, "AlreadyApplied"},
	{ledger.ErrInvalidSignature, http.StatusBadRequest, "InvalidSignature"},
	{ledger.ErrUnknownTransaction, http.StatusBadRequest, "UnknownTransaction"},
	{market.ErrListingNotFound, http.StatusNotFound, ""},
	{market.ErrMarketplaceNotFound, http.StatusNotFound, ""},
	{market.ErrUnauthorized, http.StatusForbidden, ""},
	{market.ErrDuplicateListing, http.StatusConflict, ""},
	{market.ErrMarketplaceExists, http.StatusConflict, ""},
	{token.ErrAccountNotFound, http.StatusNotFound, "AccountNotFound"},
	{token.ErrMintNotFound, http.StatusNotFound, "MintNotFound"},
	{token.ErrUnauthorized, http.StatusForbidden, "TokenUnauthorized"},
	{metadata.ErrMetadataNotFound, http.StatusNotFound, "MetadataNotFound"},
	{metadata.ErrUnauthorized, http.StatusForbidden, "MetadataUnauthorized"},
}

// classify maps a ledger or engine error to an HTTP status and stable code.
// Market codes come from market.ErrorCode. Unclassified errors from a handler
// are rule violations and answer 422.
func classify(err error) (int, string) {
	code := market.ErrorCode(err)
	for _, entry := range statusByError {
		if errors.Is(err, entry.err) {
			if code == "" {
				code = entry.code
			}
			return entry.status, code
		}
	}
	return http.StatusUnprocessableEntity, code
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if trimmed := strings.TrimSpace(err.Error()); trimmed != "" {
			message = trimmed
		}
	}
	writeJSON(w, status, errorResponse{Error: message, Code: code, RequestID: middleware.RequestIDFromContext(r.Context())})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusBadRequest, "BadRequest", err)
}

func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusInternalServerError, "Internal", err)
}
