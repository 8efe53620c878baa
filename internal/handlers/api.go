package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/stellum-labs/stellum/internal/sessions"
	"github.com/stellum-labs/stellum/internal/store"
	"github.com/stellum-labs/stellum/internal/wallet"
)

// Wallet reports the current session. The balance is only present in
// private mode; read-only sessions never see one.
func Wallet(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type Response struct {
			PublicKey   string `json:"publicKey"`
			DisplayName string `json:"displayName,omitempty"`
			PayAddress  string `json:"payAddress,omitempty"`
			WalletID    string `json:"walletId,omitempty"`
			PrivateMode bool   `json:"privateMode"`
			Balance     *int64 `json:"balance,omitempty"`
		}

		sdata := sessions.GetSession(r.Context())
		sess := st.Session()

		writeJSON(w, http.StatusOK, Response{
			PublicKey:   sdata.PublicKey,
			DisplayName: sess.DisplayName,
			PayAddress:  sess.PayAddress,
			WalletID:    sdata.WalletID,
			PrivateMode: sdata.PrivateMode,
			Balance:     sess.Balance,
		})
	}
}

// WalletRefresh re-fetches the balance from the gateway.
func WalletRefresh(authn *wallet.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		balance, err := authn.RefreshBalance(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Balance int64 `json:"balance"`
		}{Balance: balance})
	}
}

// WalletQR renders the pay address (or the public key when no address is
// set) as a PNG QR code.
func WalletQR(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := st.Session()
		content := sess.PayAddress
		if content == "" {
			content = sess.PublicKey
		}

		png, err := qrcode.Encode(content, qrcode.Medium, 256)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}

// WalletTransactions lists the wallet's transaction history.
func WalletTransactions(ops *wallet.Operations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txs, err := ops.Transactions(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		type Tx struct {
			ID          string `json:"id"`
			Amount      int64  `json:"amount"`
			Direction   string `json:"direction"`
			CreatedAt   string `json:"createdAt"`
			Description string `json:"description,omitempty"`
		}
		out := make([]Tx, 0, len(txs))
		for _, tx := range txs {
			out = append(out, Tx{
				ID:          tx.ID,
				Amount:      tx.Amount,
				Direction:   tx.Direction,
				CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
				Description: tx.Description,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type fileView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	SizeLabel   string `json:"sizeLabel"`
	MimeType    string `json:"mimeType,omitempty"`
	CreatedAt   string `json:"createdAt"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	ContentHash string `json:"contentHash,omitempty"`
	ChainTxID   string `json:"chainTxId,omitempty"`
	Error       string `json:"error,omitempty"`
}

func toFileView(rec store.FileRecord) fileView {
	return fileView{
		ID:          rec.ID,
		Name:        rec.Name,
		Size:        rec.Size,
		SizeLabel:   humanize.Bytes(uint64(rec.Size)),
		MimeType:    rec.MimeType,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		Status:      string(rec.Status),
		Progress:    rec.Progress,
		ContentHash: rec.ContentHash,
		ChainTxID:   rec.ChainTxID,
		Error:       rec.Error,
	}
}

// Files lists the tracked file records, newest first.
func Files(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs := st.Records()
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		})
		out := make([]fileView, 0, len(recs))
		for _, rec := range recs {
			out = append(out, toFileView(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// FileGet returns a single tracked record.
func FileGet(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := st.Record(chi.URLParam(r, "file_id"))
		if !ok {
			writeError(w, wallet.ErrRecordNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toFileView(rec))
	}
}

// FileRemove drops a record from the tracked list. The backend copy and
// any on-chain anchor are untouched.
func FileRemove(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st.RemoveRecord(chi.URLParam(r, "file_id"))
		w.WriteHeader(http.StatusNoContent)
	}
}
