package wallet

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strings"

	"chaintask-client/pkg/backend"
	"chaintask-client/pkg/chaintask"
	"chaintask-client/pkg/config"
	"chaintask-client/pkg/notify"

	ethaccounts "github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	siwe "github.com/spruceid/siwe-go"
)

// Session is the live binding between the unlocked account, an RPC client on
// the expected chain, and the contract call handle.
type Session struct {
	Address  common.Address
	ChainID  int64
	Client   *ethclient.Client
	Contract *chaintask.ChainTask

	auth *bind.TransactOpts
}

// TransactOpts returns signer-bound transact options carrying ctx.
func (s *Session) TransactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *s.auth
	opts.Context = ctx
	return &opts
}

// WaitMined suspends until the transaction is included in the chain.
func (s *Session) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, s.Client, tx)
}

func (s *Session) Close() {
	s.Client.Close()
}

// Service establishes wallet sessions from the local keystore, the analog of
// the browser wallet extension.
type Service struct {
	cfg      *config.Config
	backend  *backend.Client
	notifier *notify.Notifier
}

func NewService(cfg *config.Config, client *backend.Client, n *notify.Notifier) *Service {
	return &Service{cfg: cfg, backend: client, notifier: n}
}

// Connect runs the connection sequence in order: find the keystore, unlock
// the account, reach the expected chain, bind the contract, then link the
// address to the logged-in account. A failed link is reported but does not
// roll back the local connection. No session state is mutated on failure.
func (s *Service) Connect(ctx context.Context) (*Session, error) {
	key, err := s.unlockKey()
	if err != nil {
		return nil, err
	}

	client, err := s.dialExpectedChain(ctx)
	if err != nil {
		return nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key.PrivateKey, big.NewInt(s.cfg.ChainID))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("bind transactor: %w", err)
	}

	contract, err := chaintask.NewChainTask(common.HexToAddress(s.cfg.ContractAddress), client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("bind contract: %w", err)
	}

	sess := &Session{
		Address:  key.Address,
		ChainID:  s.cfg.ChainID,
		Client:   client,
		Contract: contract,
		auth:     auth,
	}

	if err := s.linkWallet(ctx, key, sess); err != nil {
		log.Error().Err(err).Msg("Failed to link wallet to account")
		s.notifier.Error("Wallet connected locally, but linking it to your account failed: " + err.Error())
	}

	log.Info().Str("address", sess.Address.Hex()).Int64("chainId", sess.ChainID).Msg("Wallet connected")
	return sess, nil
}

// Disconnect tears down the wallet session only; the auth session survives.
func (s *Service) Disconnect(ctx context.Context, sess *Session) {
	if sess == nil {
		return
	}
	if err := s.backend.DisconnectWallet(ctx, sess.Address.Hex()); err != nil {
		log.Warn().Err(err).Msg("Failed to report wallet disconnect to backend")
	}
	sess.Close()
}

func (s *Service) unlockKey() (*keystore.Key, error) {
	entries, err := os.ReadDir(s.cfg.KeystoreDir)
	if err != nil || len(entries) == 0 {
		return nil, &WalletError{Kind: NoProvider, Err: err}
	}

	ks := keystore.NewKeyStore(s.cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
	all := ks.Accounts()
	if len(all) == 0 {
		return nil, &WalletError{Kind: NoProvider}
	}

	account := all[0]
	if s.cfg.WalletAccount != "" {
		want := common.HexToAddress(s.cfg.WalletAccount)
		found := false
		for _, a := range all {
			if a.Address == want {
				account = a
				found = true
				break
			}
		}
		if !found {
			return nil, &WalletError{Kind: NoProvider, Err: fmt.Errorf("account %s not in keystore", want.Hex())}
		}
	}

	keyjson, err := os.ReadFile(account.URL.Path)
	if err != nil {
		return nil, &WalletError{Kind: NoProvider, Err: err}
	}

	key, err := keystore.DecryptKey(keyjson, s.cfg.WalletPassphrase)
	if err != nil {
		return nil, &WalletError{Kind: Rejected, Err: err}
	}
	return key, nil
}

// dialExpectedChain tries each configured RPC URL in order and keeps the
// first endpoint that serves the expected chain id, mirroring the ordered
// rpcUrls list a wallet extension is asked to add.
func (s *Service) dialExpectedChain(ctx context.Context) (*ethclient.Client, error) {
	var lastErr error
	for _, rpcURL := range s.cfg.RPCUrls {
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			lastErr = err
			continue
		}
		chainID, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			lastErr = err
			continue
		}
		if chainID.Int64() != s.cfg.ChainID {
			client.Close()
			lastErr = fmt.Errorf("%s serves chain %d, want %d", rpcURL, chainID.Int64(), s.cfg.ChainID)
			log.Warn().Str("rpc", rpcURL).Int64("chainId", chainID.Int64()).Msg("RPC endpoint on wrong network")
			continue
		}
		return client, nil
	}
	return nil, &WalletError{Kind: WrongNetwork, Err: lastErr}
}

// linkWallet proves key ownership to the backend with a signed
// sign-in-with-Ethereum message, then marks the wallet session live.
func (s *Service) linkWallet(ctx context.Context, key *keystore.Key, sess *Session) error {
	serverURL, err := url.Parse(s.cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("parse server url: %w", err)
	}
	domain := serverURL.Host
	if domain == "" {
		domain = strings.TrimPrefix(s.cfg.ServerURL, "//")
	}

	message, err := siwe.InitMessage(domain, sess.Address.Hex(), s.cfg.ServerURL, siwe.GenerateNonce(), map[string]interface{}{
		"chainId":   int(s.cfg.ChainID),
		"statement": "Link this wallet to your ChainTask account.",
	})
	if err != nil {
		return fmt.Errorf("build siwe message: %w", err)
	}

	text := message.String()
	signature, err := crypto.Sign(ethaccounts.TextHash([]byte(text)), key.PrivateKey)
	if err != nil {
		return fmt.Errorf("sign siwe message: %w", err)
	}
	signature[64] += 27 // legacy recovery id expected by EIP-191 verifiers

	if err := s.backend.LinkWallet(ctx, sess.Address.Hex(), text, hexutil.Encode(signature)); err != nil {
		return err
	}
	if err := s.backend.ConnectWallet(ctx, sess.Address.Hex()); err != nil {
		log.Warn().Err(err).Msg("Failed to report wallet connect to backend")
	}
	return nil
}
