package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go/jetstream"
)

const stateKey = "state"

// KVPersister stores snapshots as JSON in a JetStream KV bucket.
//
// The private key is only written when PersistPrivateKey is set.
type KVPersister struct {
	kv jetstream.KeyValue

	// PersistPrivateKey keeps signing material across restarts. Leave off
	// unless the deployment accepts plain-text key storage.
	PersistPrivateKey bool
}

func NewKVPersister(kv jetstream.KeyValue) *KVPersister {
	return &KVPersister{kv: kv}
}

func (p *KVPersister) Save(ctx context.Context, state State) error {
	if !p.PersistPrivateKey {
		state.Session.PrivateKey = ""
		state.Session.normalize()
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = p.kv.Put(ctx, stateKey, data)
	return err
}

func (p *KVPersister) Load(ctx context.Context) (State, bool, error) {
	entry, err := p.kv.Get(ctx, stateKey)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	var state State
	if err := json.Unmarshal(entry.Value(), &state); err != nil {
		return State{}, false, err
	}
	return state, true, nil
}
