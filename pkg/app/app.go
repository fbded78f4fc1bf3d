package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"chaintask-client/pkg/backend"
	"chaintask-client/pkg/cache"
	"chaintask-client/pkg/config"
	"chaintask-client/pkg/notify"
	"chaintask-client/pkg/realtime"
	"chaintask-client/pkg/session"
	"chaintask-client/pkg/task"
	"chaintask-client/pkg/wallet"

	"github.com/rs/zerolog/log"
)

var (
	// ErrNotAuthenticated is returned by operations that need a login first.
	ErrNotAuthenticated = errors.New("not logged in")
	// ErrNotConnected is returned by operations that need a wallet session.
	ErrNotConnected = errors.New("no wallet connected")
)

// App owns every long-lived object of the client and wires them together.
// All dependencies are explicit; nothing here is process-global, so tests
// and embedders can run multiple instances side by side.
type App struct {
	cfg      *config.Config
	backend  *backend.Client
	sessions *session.Service
	wallets  *wallet.Service
	cache    *cache.Cache
	notifier *notify.Notifier

	// connectMu serializes ConnectWallet end to end; mu alone cannot be
	// held across the dial, and two racing connects would otherwise leak
	// the loser's listener and RPC client.
	connectMu sync.Mutex

	mu             sync.Mutex
	session        *session.Session
	walletSess     *wallet.Session
	tasks          *task.Service
	submitter      *task.Submitter
	cancelListener context.CancelFunc
}

// New builds the client and restores any persisted session. The wallet is
// not connected yet; that is always an explicit user action.
func New(cfg *config.Config) (*App, error) {
	c, err := cache.New(cfg)
	if err != nil {
		return nil, err
	}

	backendClient := backend.NewClient(cfg.ServerURL)
	notifier := notify.New(cfg)
	sessions := session.NewService(backendClient, session.NewStore(cfg.StateFile))
	wallets := wallet.NewService(cfg, backendClient, notifier)

	a := &App{
		cfg:      cfg,
		backend:  backendClient,
		sessions: sessions,
		wallets:  wallets,
		cache:    c,
		notifier: notifier,
	}
	a.session = sessions.Restore()
	return a, nil
}

// Session returns the current auth session, or nil when logged out.
func (a *App) Session() *session.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// WalletAddress returns the connected wallet address, or "".
func (a *App) WalletAddress() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.walletSess == nil {
		return ""
	}
	return a.walletSess.Address.Hex()
}

func (a *App) Notifier() *notify.Notifier { return a.notifier }

// Login exchanges credentials for a session.
func (a *App) Login(ctx context.Context, email string, password string) (*session.Session, error) {
	sess, err := a.sessions.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()
	a.notifier.Info("Logged in as " + sess.Identity)
	return sess, nil
}

// Register creates an account; the caller logs in afterwards.
func (a *App) Register(ctx context.Context, identity string, email string, password string) error {
	return a.sessions.Register(ctx, identity, email, password)
}

// Logout tears down everything: the wallet session, the realtime listener,
// the task snapshot and repair queue, and the persisted auth session.
func (a *App) Logout(ctx context.Context) error {
	a.disconnectLocked(ctx)

	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()

	return a.sessions.Logout()
}

// ConnectWallet unlocks the local account, verifies the network, binds the
// contract and starts the realtime listener for the account's room. Requires
// a login so the address can be linked to the account.
func (a *App) ConnectWallet(ctx context.Context) (string, error) {
	a.connectMu.Lock()
	defer a.connectMu.Unlock()

	a.mu.Lock()
	if a.session == nil {
		a.mu.Unlock()
		return "", ErrNotAuthenticated
	}
	if a.walletSess != nil {
		addr := a.walletSess.Address.Hex()
		a.mu.Unlock()
		return addr, nil
	}
	a.mu.Unlock()

	sess, err := a.wallets.Connect(ctx)
	if err != nil {
		return "", err
	}

	tasks := task.NewService(sess.Contract, a.backend, a.cache, a.notifier, a.cfg.SnapshotTTL)
	submitter := task.NewSubmitter(sess.Contract, sess, tasks, a.notifier, a.cfg.ExplorerURL, a.cfg.NativeSymbol)
	submitter.OnTaskUpdated = func() { go a.refresh() }

	listenerCtx, cancel := context.WithCancel(context.Background())
	listener := realtime.NewListener(a.cfg.RealtimeURL, strings.ToLower(sess.Address.Hex()), func() {
		a.refresh()
	})
	go func() {
		if err := listener.Run(listenerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("Realtime listener stopped")
			a.notifier.Info("Live updates unavailable, refresh manually to see changes")
		}
	}()

	a.mu.Lock()
	a.walletSess = sess
	a.tasks = tasks
	a.submitter = submitter
	a.cancelListener = cancel
	current := a.session
	a.mu.Unlock()

	if current != nil {
		a.sessions.SetWalletAddress(current, sess.Address.Hex())
	}
	return sess.Address.Hex(), nil
}

// DisconnectWallet ends the wallet session. The auth session survives.
func (a *App) DisconnectWallet(ctx context.Context) {
	a.disconnectLocked(ctx)
}

// Fetch reconciles both sources and replaces the task snapshot.
func (a *App) Fetch(ctx context.Context) ([]task.DisplayTask, error) {
	a.mu.Lock()
	tasks, sess := a.tasks, a.walletSess
	a.mu.Unlock()
	if tasks == nil || sess == nil {
		return nil, ErrNotConnected
	}
	return tasks.Fetch(ctx, sess.Address)
}

// View filters the last-fetched snapshot without touching the network.
func (a *App) View(f task.Filter) []task.DisplayTask {
	a.mu.Lock()
	tasks := a.tasks
	a.mu.Unlock()
	if tasks == nil {
		return nil
	}
	return tasks.View(f, time.Now())
}

// Get looks up one task in the snapshot.
func (a *App) Get(id int64) (task.DisplayTask, bool) {
	a.mu.Lock()
	tasks := a.tasks
	a.mu.Unlock()
	if tasks == nil {
		return task.DisplayTask{}, false
	}
	return tasks.Get(id)
}

// Submit sends a task mutation on-chain and syncs metadata afterwards.
func (a *App) Submit(ctx context.Context, op task.Operation) (*task.Result, error) {
	a.mu.Lock()
	submitter := a.submitter
	a.mu.Unlock()
	if submitter == nil {
		return nil, ErrNotConnected
	}
	return submitter.Submit(ctx, op)
}

// PatchMetadata updates off-chain metadata only; no transaction is involved.
func (a *App) PatchMetadata(ctx context.Context, id int64, patch task.MetadataPatch) error {
	a.mu.Lock()
	if a.session == nil {
		a.mu.Unlock()
		return ErrNotAuthenticated
	}
	a.mu.Unlock()
	if err := a.backend.PatchTaskMetadata(ctx, id, patch); err != nil {
		return &task.MetadataSyncError{TaskID: id, Err: err}
	}
	a.refresh()
	return nil
}

// Close releases network resources. It does not log the user out.
func (a *App) Close(ctx context.Context) {
	a.mu.Lock()
	cancel := a.cancelListener
	sess := a.walletSess
	a.cancelListener = nil
	a.walletSess = nil
	a.tasks = nil
	a.submitter = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sess != nil {
		sess.Close()
	}
	a.cache.Shutdown()
}

func (a *App) disconnectLocked(ctx context.Context) {
	a.mu.Lock()
	cancel := a.cancelListener
	sess := a.walletSess
	tasks := a.tasks
	a.cancelListener = nil
	a.walletSess = nil
	a.tasks = nil
	a.submitter = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if tasks != nil {
		tasks.Clear(ctx)
	}
	if sess != nil {
		a.wallets.Disconnect(ctx, sess)
	}
}

// refresh refetches the reconciled view after a change signal. Failures are
// logged only; the next explicit fetch retries.
func (a *App) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := a.Fetch(ctx); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Warn().Err(err).Msg("Background refresh failed")
	}
}
