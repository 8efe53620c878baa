package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/stellum-labs/stellum/internal/filestore"
	"github.com/stellum-labs/stellum/internal/handlers"
	"github.com/stellum-labs/stellum/internal/middlewares"
	"github.com/stellum-labs/stellum/internal/store"
	"github.com/stellum-labs/stellum/internal/wallet"
)

func AddRoutes(
	mux *chi.Mux,
	logger *slog.Logger,
	st *store.Store,
	registrar *wallet.Registrar,
	authn *wallet.Authenticator,
	ops *wallet.Operations,
	backend *filestore.Client,
	nc *nats.Conn,
) {
	mux.Route("/api", func(mux chi.Router) {
		mux.Post("/register", handlers.RegisterStart(registrar))
		mux.Route("/register/{draft_id}", func(mux chi.Router) {
			mux.Post("/regenerate", handlers.RegisterRegenerate(registrar))
			mux.Post("/advance", handlers.RegisterAdvance(registrar))
			mux.Post("/backup", handlers.RegisterBackup(registrar))
			mux.Post("/confirm", handlers.RegisterConfirm(registrar))
			mux.Delete("/", handlers.RegisterDiscard(registrar))
		})

		mux.Post("/login", handlers.Login(authn))
		mux.Post("/logout", handlers.Logout(authn))

		mux.Group(func(mux chi.Router) {
			mux.Use(middlewares.Auth(logger, st, true))

			mux.Get("/wallet", handlers.Wallet(st))
			mux.Post("/wallet/refresh", handlers.WalletRefresh(authn))
			mux.Get("/wallet/qr", handlers.WalletQR(st))
			mux.Get("/wallet/transactions", handlers.WalletTransactions(ops))

			mux.Get("/files", handlers.Files(st))
			mux.Post("/files", handlers.FileUpload(logger, ops))
			mux.Post("/files/clear", handlers.FilesClear(backend, st))
			mux.Route("/files/{file_id}", func(mux chi.Router) {
				mux.Get("/", handlers.FileGet(st))
				mux.Delete("/", handlers.FileRemove(st))
				mux.Post("/exchange", handlers.FileExchange(ops))
				mux.Get("/download", handlers.FileDownload(backend, st))
				mux.Get("/validate", handlers.FileValidate(backend, st))
			})
			mux.Get("/files/tx/{tx_id}/download", handlers.FileDownloadByTx(backend))

			mux.Post("/inscriptions", handlers.Inscribe(ops))

			mux.Get("/updates", handlers.Updates(nc))
		})
	})
}
