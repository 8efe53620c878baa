package sessions

import "context"

var sessionContextKey = struct{}{}

// Data is the per-request view of the current wallet session. It carries
// identity and privilege level only; signing material stays in the store
// and is re-read by each operation at submission time.
type Data struct {
	PublicKey   string
	WalletID    string
	PrivateMode bool
}

func WithSession(ctx context.Context, data *Data) context.Context {
	return context.WithValue(ctx, sessionContextKey, data)
}

// GetSession will return the session data in the Context.
// If the session data isn't found, nil is returned.
func GetSession(ctx context.Context) *Data {
	val := ctx.Value(sessionContextKey)
	if val == nil {
		return nil
	}

	data, ok := val.(*Data)
	if !ok {
		panic("sessions: session context value of wrong type")
	}
	return data
}
