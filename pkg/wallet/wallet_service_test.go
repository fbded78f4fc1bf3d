package wallet

import (
	"context"
	"testing"

	"chaintask-client/pkg/backend"
	"chaintask-client/pkg/config"
	"chaintask-client/pkg/notify"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

func newTestService(cfg *config.Config) *Service {
	return NewService(cfg, backend.NewClient("http://localhost:1"), notify.New(nil))
}

// newKeystoreAccount creates a throwaway encrypted account with light scrypt
// parameters so decryption stays fast.
func newKeystoreAccount(t *testing.T, dir string, passphrase string) string {
	t.Helper()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	account, err := ks.NewAccount(passphrase)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	return account.Address.Hex()
}

func TestConnect_MissingKeystoreIsNoProvider(t *testing.T) {
	cfg := &config.Config{KeystoreDir: "/nonexistent/keystore"}
	svc := newTestService(cfg)

	_, err := svc.Connect(context.Background())
	if !IsWalletError(err, NoProvider) {
		t.Fatalf("expected NoProvider, got %v", err)
	}
}

func TestConnect_EmptyKeystoreIsNoProvider(t *testing.T) {
	cfg := &config.Config{KeystoreDir: t.TempDir()}
	svc := newTestService(cfg)

	_, err := svc.Connect(context.Background())
	if !IsWalletError(err, NoProvider) {
		t.Fatalf("expected NoProvider, got %v", err)
	}
}

func TestConnect_WrongPassphraseIsRejected(t *testing.T) {
	dir := t.TempDir()
	newKeystoreAccount(t, dir, "correct horse")

	cfg := &config.Config{KeystoreDir: dir, WalletPassphrase: "wrong"}
	svc := newTestService(cfg)

	// rejection happens before any RPC endpoint is dialed
	_, err := svc.Connect(context.Background())
	if !IsWalletError(err, Rejected) {
		t.Fatalf("expected Rejected, got %v", err)
	}
}

func TestConnect_ConfiguredAccountMissingIsNoProvider(t *testing.T) {
	dir := t.TempDir()
	newKeystoreAccount(t, dir, "pw")

	cfg := &config.Config{
		KeystoreDir:      dir,
		WalletPassphrase: "pw",
		WalletAccount:    "0x2222222222222222222222222222222222222222",
	}
	svc := newTestService(cfg)

	_, err := svc.Connect(context.Background())
	if !IsWalletError(err, NoProvider) {
		t.Fatalf("expected NoProvider, got %v", err)
	}
}

func TestConnect_NoReachableEndpointIsWrongNetwork(t *testing.T) {
	dir := t.TempDir()
	newKeystoreAccount(t, dir, "pw")

	cfg := &config.Config{
		KeystoreDir:      dir,
		WalletPassphrase: "pw",
		ChainID:          97,
		RPCUrls:          []string{"http://127.0.0.1:1"},
	}
	svc := newTestService(cfg)

	_, err := svc.Connect(context.Background())
	if !IsWalletError(err, WrongNetwork) {
		t.Fatalf("expected WrongNetwork, got %v", err)
	}
}

func TestIsWalletError_DistinguishesKinds(t *testing.T) {
	err := &WalletError{Kind: Rejected}
	if !IsWalletError(err, Rejected) {
		t.Fatal("expected Rejected match")
	}
	if IsWalletError(err, NoProvider) {
		t.Fatal("kind mismatch must not match")
	}
	if IsWalletError(nil, Rejected) {
		t.Fatal("nil error must not match")
	}
}
