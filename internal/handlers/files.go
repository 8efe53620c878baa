package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stellum-labs/stellum/internal/filestore"
	"github.com/stellum-labs/stellum/internal/store"
	"github.com/stellum-labs/stellum/internal/wallet"
)

const (
	maxUploadBytes = 100 << 20
	uploadDeadline = 5 * time.Minute
)

// FileUpload accepts a multipart upload, records it as pending and anchors
// it in the background. The response carries the record to poll or watch
// over the updates stream.
func FileUpload(logger *slog.Logger, ops *wallet.Operations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()

		rec, err := ops.StartUpload(header.Filename, header.Header.Get("Content-Type"), header.Size)
		if err != nil {
			writeError(w, err)
			return
		}

		// Buffer the contents so the upload survives the request ending.
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, file); err != nil {
			logger.LogAttrs(r.Context(), slog.LevelError, "buffer upload", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), uploadDeadline)
			defer cancel()
			ops.ProcessUpload(ctx, rec.ID, &buf)
		}()

		writeJSON(w, http.StatusAccepted, toFileView(rec))
	}
}

// FileExchange anchors a completed file to a recipient's pay address.
func FileExchange(ops *wallet.Operations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type Input struct {
			PayAddress string `json:"payAddress"`
		}
		var body Input
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		txID, err := ops.Exchange(r.Context(), chi.URLParam(r, "file_id"), body.PayAddress)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			TxID string `json:"txId"`
		}{TxID: txID})
	}
}

// FileDownload streams a tracked file's contents back from the backend.
func FileDownload(backend *filestore.Client, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := st.Record(chi.URLParam(r, "file_id"))
		if !ok {
			writeError(w, wallet.ErrRecordNotFound)
			return
		}
		if rec.Status != store.StatusCompleted || rec.BackendID == nil {
			writeError(w, wallet.ErrRecordNotCompleted)
			return
		}

		body, err := backend.Download(r.Context(), *rec.BackendID)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		defer body.Close()

		if rec.MimeType != "" {
			w.Header().Set("Content-Type", rec.MimeType)
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+rec.Name+`"`)
		io.Copy(w, body)
	}
}

// FileDownloadByTx fetches file contents keyed by the anchoring
// transaction id. Works for files exchanged by another wallet, where no
// local record exists.
func FileDownloadByTx(backend *filestore.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := backend.DownloadByTx(r.Context(), chi.URLParam(r, "tx_id"))
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		defer body.Close()

		w.Header().Set("Content-Type", "application/octet-stream")
		io.Copy(w, body)
	}
}

// FileValidate asks the backend whether its stored hash still matches the
// hash recorded at upload time.
func FileValidate(backend *filestore.Client, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := st.Record(chi.URLParam(r, "file_id"))
		if !ok {
			writeError(w, wallet.ErrRecordNotFound)
			return
		}
		if rec.Status != store.StatusCompleted || rec.BackendID == nil {
			writeError(w, wallet.ErrRecordNotCompleted)
			return
		}

		valid, err := backend.Validate(r.Context(), *rec.BackendID, rec.ContentHash)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Valid bool `json:"valid"`
		}{Valid: valid})
	}
}

// FilesClear wipes the backend's stored files and the tracked record list.
// Destructive; meant for development backends.
func FilesClear(backend *filestore.Client, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := backend.Clear(r.Context()); err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		st.ClearRecords()
		w.WriteHeader(http.StatusNoContent)
	}
}

// Inscribe writes a free-form message on-chain.
func Inscribe(ops *wallet.Operations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		type Input struct {
			Message string `json:"message"`
		}
		var body Input
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		txID, err := ops.Inscribe(r.Context(), body.Message)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			TxID string `json:"txId"`
		}{TxID: txID})
	}
}
