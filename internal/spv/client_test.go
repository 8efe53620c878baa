package spv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWalletInfoSendsAuthKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/current" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotKey = r.Header.Get("X-Auth-Key")
		json.NewEncoder(w).Encode(map[string]any{"id": "w1", "currentBalance": 100})
	}))
	defer srv.Close()

	c := New(srv.URL)
	info, err := c.WalletInfo(context.Background(), "xpub-one")
	if err != nil {
		t.Fatal(err)
	}

	if gotKey != "xpub-one" {
		t.Errorf("auth key = %q", gotKey)
	}
	if info.ID != "w1" || info.Balance != 100 {
		t.Errorf("info = %+v", info)
	}
}

func TestAnnotateWrapsPayload(t *testing.T) {
	var gotBody struct {
		StringParts []string `json:"stringParts"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transactions/annotate" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"txId": "tx7"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	txID, err := c.Annotate(context.Background(), "xprv-one", `{"hello":"chain"}`)
	if err != nil {
		t.Fatal(err)
	}

	if txID != "tx7" {
		t.Errorf("tx id = %q", txID)
	}
	if len(gotBody.StringParts) != 1 || gotBody.StringParts[0] != `{"hello":"chain"}` {
		t.Errorf("string parts = %v", gotBody.StringParts)
	}
}

func TestRegisterWalletBody(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "id": "w1"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	reg, err := c.RegisterWallet(context.Background(), "xpub-one", "ann@pay", "Ann")
	if err != nil {
		t.Fatal(err)
	}

	if !reg.Success || reg.ID != "w1" {
		t.Errorf("registration = %+v", reg)
	}
	if gotBody["xpub"] != "xpub-one" || gotBody["paymail"] != "ann@pay" || gotBody["publicName"] != "Ann" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.WalletInfo(context.Background(), "xpub-one"); err == nil {
		t.Error("5xx response not surfaced")
	}
}

func TestUndecodableBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>nope</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.WalletInfo(context.Background(), "xpub-one")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestTransactionsNormalizeEachEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "tx1", "amount": 10, "direction": "incoming"},
			{"tx_id": "tx2", "satoshis": -5, "type": "outgoing"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	txs, err := c.Transactions(context.Background(), "xpub-one")
	if err != nil {
		t.Fatal(err)
	}

	if len(txs) != 2 {
		t.Fatalf("txs = %d, want 2", len(txs))
	}
	if txs[1].ID != "tx2" || txs[1].Amount != -5 || txs[1].Direction != "outgoing" {
		t.Errorf("second tx = %+v", txs[1])
	}
}
