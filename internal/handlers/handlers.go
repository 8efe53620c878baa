package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	datastar "github.com/starfederation/datastar/sdk/go"
	"github.com/stellum-labs/stellum/internal/wallet"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	status, msg := errStatus(err)
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

// errStatus maps workflow errors to a status code and the one user-facing
// message each failure gets. Technical detail never leaves the log.
func errStatus(err error) (int, string) {
	var vErr *wallet.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, "missing required field: " + vErr.Field
	}

	switch {
	case errors.Is(err, wallet.ErrSigningKeyRequired):
		return http.StatusForbidden, "log in with your private key to perform this action"
	case errors.Is(err, wallet.ErrSessionRequired):
		return http.StatusUnauthorized, "log in first"
	case errors.Is(err, wallet.ErrKeyRequired):
		return http.StatusBadRequest, "enter your key"
	case errors.Is(err, wallet.ErrLoginFailed):
		return http.StatusUnauthorized, "could not log in, check your key"
	case errors.Is(err, wallet.ErrBackupNotAcknowledged):
		return http.StatusBadRequest, "confirm you have written down your recovery phrase"
	case errors.Is(err, wallet.ErrMnemonicMismatch):
		return http.StatusBadRequest, "the recovery phrase you entered is incorrect, try again"
	case errors.Is(err, wallet.ErrRegistrationFailed):
		return http.StatusBadGateway, "could not register, check your details and try again"
	case errors.Is(err, wallet.ErrDraftNotFound):
		return http.StatusNotFound, "registration session expired, start over"
	case errors.Is(err, wallet.ErrWrongStage):
		return http.StatusConflict, "action not available at this step"
	case errors.Is(err, wallet.ErrRecordNotFound):
		return http.StatusNotFound, "file not found"
	case errors.Is(err, wallet.ErrRecordNotCompleted):
		return http.StatusConflict, "file is not uploaded yet"
	case errors.Is(err, wallet.ErrExchangeFailed):
		return http.StatusBadGateway, "could not exchange file, try again"
	case errors.Is(err, wallet.ErrInscribeFailed):
		return http.StatusBadGateway, "could not save message, try again"
	case errors.Is(err, wallet.ErrRefreshFailed):
		return http.StatusBadGateway, "could not refresh balance, try again"
	case errors.Is(err, wallet.ErrHistoryFailed):
		return http.StatusBadGateway, "could not load transactions, try again"
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

// Updates streams refresh signals to the browser. One NATS subject feeds
// every open stream; subscribers refetch on each signal, so duplicate
// deliveries are harmless.
func Updates(nc *nats.Conn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)

		msgChan := make(chan *nats.Msg, 8)
		sub, err := nc.ChanSubscribe(wallet.SubjectRefresh, msgChan)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	loop:
		for {
			select {
			case <-msgChan:
				sse.MergeSignals([]byte(`{"refreshedAt":` + strconv.FormatInt(time.Now().UnixMilli(), 10) + `}`))
			case <-r.Context().Done():
				sub.Unsubscribe()
				break loop
			}
		}
	}
}
