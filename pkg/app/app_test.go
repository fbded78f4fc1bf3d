package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"chaintask-client/pkg/backend"
	"chaintask-client/pkg/config"
	"chaintask-client/pkg/wallet"
)

func newTestApp(t *testing.T, backendURL string) *App {
	t.Helper()
	cfg := &config.Config{
		ServerURL:   backendURL,
		StateFile:   filepath.Join(t.TempDir(), "state.json"),
		KeystoreDir: filepath.Join(t.TempDir(), "keystore"),
		ChainID:     97,
		SnapshotTTL: time.Second,
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestConnectWallet_RequiresLogin(t *testing.T) {
	a := newTestApp(t, "http://localhost:1")

	if _, err := a.ConnectWallet(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestSubmitAndFetch_RequireWallet(t *testing.T) {
	a := newTestApp(t, "http://localhost:1")

	if _, err := a.Fetch(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected from Fetch, got %v", err)
	}
}

func TestConnectWallet_ConcurrentCallsSerialize(t *testing.T) {
	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(backend.LoginResult{Token: "tok", Identity: "alice"})
	}))
	defer backendServer.Close()

	a := newTestApp(t, backendServer.URL)
	if _, err := a.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// the keystore is empty, so every connect fails; racing calls must all
	// come back with the wallet error and leave the app disconnected
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.ConnectWallet(context.Background()); !wallet.IsWalletError(err, wallet.NoProvider) {
				t.Errorf("expected NoProvider, got %v", err)
			}
		}()
	}
	wg.Wait()

	if a.WalletAddress() != "" {
		t.Fatalf("expected no wallet session, got %q", a.WalletAddress())
	}
}
