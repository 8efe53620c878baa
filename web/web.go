package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Nintron27/pillow"
	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stellum-labs/stellum/internal/config"
	"github.com/stellum-labs/stellum/internal/filestore"
	"github.com/stellum-labs/stellum/internal/keys"
	"github.com/stellum-labs/stellum/internal/routes"
	"github.com/stellum-labs/stellum/internal/spv"
	"github.com/stellum-labs/stellum/internal/store"
	"github.com/stellum-labs/stellum/internal/wallet"
)

// Run sets up all needed dependencies for the server, early returning with
// an error if one occurs.
func Run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create logger
	logger := slog.New(slog.NewJSONHandler(stdout, nil))

	// Start embedded NATS server
	ns, err := pillow.Run(
		pillow.WithNATSServerOptions(&server.Options{
			JetStream: true,
			StoreDir:  cfg.DataDir,
		}),
	)
	if err != nil {
		return err
	}

	nc, err := ns.NATSClient()
	if err != nil {
		return err
	}

	// Create bucket for the wallet state snapshot
	js, err := jetstream.New(nc)
	if err != nil {
		return err
	}
	walletKV, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: "wallet",
	})
	if err != nil {
		return err
	}

	persister := store.NewKVPersister(walletKV)
	persister.PersistPrivateKey = cfg.PersistPrivateKey
	st := store.New(persister, logger)
	if err := st.Restore(ctx); err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "restore state", slog.String("error", err.Error()))
	}

	gw := spv.New(cfg.GatewayURL)
	backend := filestore.New(cfg.FileAPIURL)

	registrar := wallet.NewRegistrar(keys.NewHDProvider(), gw, st, logger)
	authn := wallet.NewAuthenticator(gw, st, logger)
	ops := wallet.NewOperations(st, gw, backend, nc, logger)

	// Create and run server
	srv := NewServer(logger, st, registrar, authn, ops, backend, nc)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		logger.LogAttrs(
			ctx,
			slog.LevelInfo,
			"server started",
			slog.String("PORT", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "error listening and serving: %s\n", err)
		}
	}()

	// Handle graceful shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "error shutting down http server: %s\n", err)
		}
		if err := ns.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(stderr, "error shutting down nats server: %s\n", err)
		}
	}()
	wg.Wait()
	return nil
}

func NewServer(
	logger *slog.Logger,
	st *store.Store,
	registrar *wallet.Registrar,
	authn *wallet.Authenticator,
	ops *wallet.Operations,
	backend *filestore.Client,
	nc *nats.Conn,
) http.Handler {
	mux := chi.NewMux()

	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Use(middleware.Heartbeat("/heartbeat"))
	mux.Use(Compressor(2))

	routes.AddRoutes(mux, logger, st, registrar, authn, ops, backend, nc)

	return mux
}

// Compressor is an adapter middleware from Chi that compresses
// the response body of a given content types to a data format based
// on Accept-Encoding request header. Adapted to include Brotli encoding.
//
// NOTE: make sure to set the Content-Type header on your response
// otherwise this middleware will not compress the response body.
//
// Passing a compression level of 2-5 is sensible value.
func Compressor(level int) func(next http.Handler) http.Handler {
	compressor := middleware.NewCompressor(level)
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterV2(w, level)
	})

	return compressor.Handler
}
