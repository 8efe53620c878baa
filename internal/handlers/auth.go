package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stellum-labs/stellum/internal/wallet"
)

type draftResponse struct {
	DraftID    string `json:"draftId"`
	Stage      string `json:"stage"`
	Mnemonic   string `json:"mnemonic,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
	PublicKey  string `json:"publicKey,omitempty"`
}

func toDraftResponse(d wallet.Draft, withKeys bool) draftResponse {
	rsp := draftResponse{DraftID: d.ID, Stage: string(d.Stage)}
	if withKeys {
		rsp.Mnemonic = d.Keys.Mnemonic
		rsp.PrivateKey = d.Keys.PrivateKey
		rsp.PublicKey = d.Keys.PublicKey
	}
	return rsp
}

// RegisterStart opens a registration draft: profile validation plus key
// generation. The key material is returned once, for display and backup.
func RegisterStart(registrar *wallet.Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type Input struct {
			Name        string `json:"name"`
			PayAddress  string `json:"payAddress"`
			DisplayName string `json:"displayName"`
		}
		var body Input
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		draft, err := registrar.Start(body.Name, body.PayAddress, body.DisplayName)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDraftResponse(draft, true))
	}
}

// RegisterRegenerate replaces the draft's key material with a fresh set.
func RegisterRegenerate(registrar *wallet.Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := registrar.Regenerate(chi.URLParam(r, "draft_id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDraftResponse(draft, true))
	}
}

// RegisterAdvance moves from key display to the backup stage.
func RegisterAdvance(registrar *wallet.Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := registrar.Advance(chi.URLParam(r, "draft_id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDraftResponse(draft, false))
	}
}

// RegisterBackup records the backup acknowledgment and moves to the
// confirmation stage.
func RegisterBackup(registrar *wallet.Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type Input struct {
			Acknowledged bool `json:"acknowledged"`
		}
		var body Input
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		draft, err := registrar.ConfirmBackup(chi.URLParam(r, "draft_id"), body.Acknowledged)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDraftResponse(draft, false))
	}
}

// RegisterConfirm checks the retyped phrase, registers the wallet remotely
// and establishes the session.
func RegisterConfirm(registrar *wallet.Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type Input struct {
			Mnemonic string `json:"mnemonic" validate:"required"`
		}
		var body Input
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if validate.Struct(body) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if err := registrar.Confirm(r.Context(), chi.URLParam(r, "draft_id"), body.Mnemonic); err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

// RegisterDiscard drops a draft.
func RegisterDiscard(registrar *wallet.Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		registrar.Discard(chi.URLParam(r, "draft_id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

// Login establishes a session from a public key (read-only) or a private
// key (full).
func Login(authn *wallet.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type Input struct {
			Mode string `json:"mode" validate:"required,oneof=public private"`
			Key  string `json:"key"`
		}
		var body Input
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if validate.Struct(body) != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var err error
		if body.Mode == "private" {
			err = authn.LoginPrivate(r.Context(), body.Key)
		} else {
			err = authn.LoginPublic(r.Context(), body.Key)
		}
		if err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// Logout clears the session and the tracked records.
func Logout(authn *wallet.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authn.Logout()
		w.WriteHeader(http.StatusOK)
	}
}
