package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/stellum-labs/stellum/internal/keys"
	"github.com/stellum-labs/stellum/internal/spv"
	"github.com/stellum-labs/stellum/internal/store"
)

var testMaterial = []keys.Material{
	{
		Mnemonic:   "legal winner thank year wave sausage worth useful legal winner thank yellow",
		PrivateKey: "xprv-one",
		PublicKey:  "xpub-one",
	},
	{
		Mnemonic:   "letter advice cage absurd amount doctor acoustic avoid letter advice cage above",
		PrivateKey: "xprv-two",
		PublicKey:  "xpub-two",
	},
}

func newTestRegistrar(gw *mockGateway, st *store.Store) (*Registrar, *mockKeys) {
	mk := &mockKeys{material: testMaterial}
	return NewRegistrar(mk, gw, st, testLogger), mk
}

func TestStartRejectsMissingFieldsBeforeKeyGeneration(t *testing.T) {
	tests := []struct {
		name, payAddress, displayName, field string
	}{
		{"", "ann@pay", "Ann", "name"},
		{"   ", "ann@pay", "Ann", "name"},
		{"ann", "", "Ann", "payAddress"},
		{"ann", "ann@pay", "  ", "displayName"},
	}

	for _, tt := range tests {
		reg, mk := newTestRegistrar(&mockGateway{}, store.New(nil, nil))

		_, err := reg.Start(tt.name, tt.payAddress, tt.displayName)

		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != tt.field {
			t.Errorf("Start(%q,%q,%q) err = %v, want validation error on %s",
				tt.name, tt.payAddress, tt.displayName, err, tt.field)
		}
		if mk.calls != 0 {
			t.Errorf("key material generated despite invalid profile")
		}
	}
}

func TestStartOpensDraftAtKeyStage(t *testing.T) {
	reg, _ := newTestRegistrar(&mockGateway{}, store.New(nil, nil))

	draft, err := reg.Start("  ann  ", "ann@pay", "Ann")
	if err != nil {
		t.Fatal(err)
	}

	if draft.ID == "" {
		t.Error("draft without id")
	}
	if draft.Stage != StageKeys {
		t.Errorf("stage = %s, want %s", draft.Stage, StageKeys)
	}
	if draft.Name != "ann" {
		t.Errorf("name not trimmed: %q", draft.Name)
	}
	if draft.Keys.Mnemonic == "" || draft.Keys.PrivateKey == "" || draft.Keys.PublicKey == "" {
		t.Errorf("draft missing key material: %+v", draft.Keys)
	}
}

func TestRegenerateReplacesKeysAndResetsAcknowledgment(t *testing.T) {
	reg, _ := newTestRegistrar(&mockGateway{}, store.New(nil, nil))

	draft, _ := reg.Start("ann", "ann@pay", "Ann")
	if _, err := reg.Advance(draft.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.ConfirmBackup(draft.ID, true); err != nil {
		t.Fatal(err)
	}

	fresh, err := reg.Regenerate(draft.ID)
	if err != nil {
		t.Fatal(err)
	}

	if fresh.Keys.Mnemonic == draft.Keys.Mnemonic {
		t.Error("regenerate kept the old mnemonic")
	}
	if fresh.Stage != StageKeys {
		t.Errorf("stage = %s, want %s", fresh.Stage, StageKeys)
	}
	if fresh.Acknowledged {
		t.Error("acknowledgment survived key regeneration")
	}
}

func TestWorkflowStageOrder(t *testing.T) {
	reg, _ := newTestRegistrar(&mockGateway{}, store.New(nil, nil))
	draft, _ := reg.Start("ann", "ann@pay", "Ann")

	// Confirming before backup is a stage violation.
	if err := reg.Confirm(context.Background(), draft.ID, draft.Keys.Mnemonic); !errors.Is(err, ErrWrongStage) {
		t.Errorf("confirm at key stage: err = %v, want ErrWrongStage", err)
	}
	if _, err := reg.ConfirmBackup(draft.ID, true); !errors.Is(err, ErrWrongStage) {
		t.Errorf("backup at key stage: err = %v, want ErrWrongStage", err)
	}

	if _, err := reg.Advance(draft.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Advance(draft.ID); !errors.Is(err, ErrWrongStage) {
		t.Errorf("double advance: err = %v, want ErrWrongStage", err)
	}
}

func TestBackupRequiresAcknowledgment(t *testing.T) {
	reg, _ := newTestRegistrar(&mockGateway{}, store.New(nil, nil))
	draft, _ := reg.Start("ann", "ann@pay", "Ann")
	reg.Advance(draft.ID)

	if _, err := reg.ConfirmBackup(draft.ID, false); !errors.Is(err, ErrBackupNotAcknowledged) {
		t.Fatalf("err = %v, want ErrBackupNotAcknowledged", err)
	}

	// The draft stays at the backup stage for a retry.
	d, _ := reg.Draft(draft.ID)
	if d.Stage != StageBackup {
		t.Errorf("stage after refused backup = %s, want %s", d.Stage, StageBackup)
	}
}

func TestConfirmMismatchKeepsDraft(t *testing.T) {
	gw := &mockGateway{}
	reg, _ := newTestRegistrar(gw, store.New(nil, nil))
	draft, _ := reg.Start("ann", "ann@pay", "Ann")
	reg.Advance(draft.ID)
	reg.ConfirmBackup(draft.ID, true)

	err := reg.Confirm(context.Background(), draft.ID, "wrong words entirely")
	if !errors.Is(err, ErrMnemonicMismatch) {
		t.Fatalf("err = %v, want ErrMnemonicMismatch", err)
	}
	if gw.registerCalls != 0 {
		t.Error("mismatched phrase still reached the gateway")
	}

	// Retry with the right phrase must still work.
	gw.registration = spv.Registration{Success: true, ID: "w1"}
	if err := reg.Confirm(context.Background(), draft.ID, draft.Keys.Mnemonic); err != nil {
		t.Fatalf("retry after mismatch: %v", err)
	}
}

func TestConfirmToleratesPhraseFormatting(t *testing.T) {
	gw := &mockGateway{registration: spv.Registration{Success: true, ID: "w1"}}
	reg, _ := newTestRegistrar(gw, store.New(nil, nil))
	draft, _ := reg.Start("ann", "ann@pay", "Ann")
	reg.Advance(draft.ID)
	reg.ConfirmBackup(draft.ID, true)

	sloppy := "  Legal   winner thank YEAR wave sausage worth useful legal winner thank yellow\n"
	if err := reg.Confirm(context.Background(), draft.ID, sloppy); err != nil {
		t.Fatalf("whitespace/case variant rejected: %v", err)
	}
}

func TestNormalizePhraseIsOrderSensitive(t *testing.T) {
	a := NormalizePhrase("alpha beta gamma")
	b := NormalizePhrase("beta alpha gamma")
	if a == b {
		t.Error("word order ignored in phrase comparison")
	}
}

func TestConfirmEstablishesPrivateSession(t *testing.T) {
	gw := &mockGateway{registration: spv.Registration{Success: true, ID: "w1", Balance: 250}}
	st := store.New(nil, nil)
	reg, _ := newTestRegistrar(gw, st)
	draft, _ := reg.Start("ann", "ann@pay", "Ann")
	reg.Advance(draft.ID)
	reg.ConfirmBackup(draft.ID, true)

	if err := reg.Confirm(context.Background(), draft.ID, draft.Keys.Mnemonic); err != nil {
		t.Fatal(err)
	}

	sess := st.Session()
	if sess.PublicKey != draft.Keys.PublicKey || sess.PrivateKey != draft.Keys.PrivateKey {
		t.Errorf("session keys wrong: %+v", sess)
	}
	if !sess.PrivateMode || !sess.CanSign() {
		t.Error("registered session is not private")
	}
	if sess.WalletID != "w1" {
		t.Errorf("wallet id = %q", sess.WalletID)
	}
	if sess.Balance == nil || *sess.Balance != 250 {
		t.Errorf("balance = %v", sess.Balance)
	}

	if _, err := reg.Draft(draft.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Error("draft survived successful registration")
	}
}

func TestConfirmRemoteFailureKeepsDraft(t *testing.T) {
	gw := &mockGateway{registerErr: errors.New("gateway down")}
	st := store.New(nil, nil)
	reg, _ := newTestRegistrar(gw, st)
	draft, _ := reg.Start("ann", "ann@pay", "Ann")
	reg.Advance(draft.ID)
	reg.ConfirmBackup(draft.ID, true)

	if err := reg.Confirm(context.Background(), draft.ID, draft.Keys.Mnemonic); !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("err = %v, want ErrRegistrationFailed", err)
	}
	if st.Session().Active() {
		t.Error("failed registration still created a session")
	}
	if _, err := reg.Draft(draft.ID); err != nil {
		t.Error("draft dropped on remote failure")
	}

	// A rejection (success=false) behaves the same.
	gw.registerErr = nil
	gw.registration = spv.Registration{Success: false}
	if err := reg.Confirm(context.Background(), draft.ID, draft.Keys.Mnemonic); !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("rejected registration: err = %v", err)
	}
}

func TestDiscardDropsDraft(t *testing.T) {
	reg, _ := newTestRegistrar(&mockGateway{}, store.New(nil, nil))
	draft, _ := reg.Start("ann", "ann@pay", "Ann")

	reg.Discard(draft.ID)

	if _, err := reg.Draft(draft.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Error("discarded draft still present")
	}
}
