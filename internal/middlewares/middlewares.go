package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/stellum-labs/stellum/internal/sessions"
	"github.com/stellum-labs/stellum/internal/store"
)

// Auth attaches the current wallet session to the request context. With
// authRequired set, requests without an active session are rejected with
// 401. It only carries identity; the signing gate is evaluated by each
// operation at submission time so a mode switch takes effect immediately.
func Auth(logger *slog.Logger, st *store.Store, authRequired bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := st.Session()
			if !sess.Active() {
				if !authRequired {
					next.ServeHTTP(w, r)
					return
				}
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			sData := sessions.Data{
				PublicKey:   sess.PublicKey,
				WalletID:    sess.WalletID,
				PrivateMode: sess.PrivateMode,
			}
			r = r.WithContext(sessions.WithSession(r.Context(), &sData))
			next.ServeHTTP(w, r)
		})
	}
}
