package wallet

import "errors"

// ErrorKind classifies wallet connection failures. All of them are
// user-visible and retryable by re-attempting the connect; none mutate
// session or account state.
type ErrorKind string

const (
	// NoProvider means no local keystore is present at all.
	NoProvider ErrorKind = "no_provider"
	// Rejected means the signer declined, i.e. the key would not unlock.
	Rejected ErrorKind = "rejected"
	// WrongNetwork means no configured RPC endpoint served the expected
	// chain.
	WrongNetwork ErrorKind = "wrong_network"
)

type WalletError struct {
	Kind ErrorKind
	Err  error
}

func (e *WalletError) Error() string {
	switch e.Kind {
	case NoProvider:
		return "no wallet keystore found; create or import an account first"
	case Rejected:
		return "wallet unlock rejected"
	case WrongNetwork:
		return "no RPC endpoint served the expected network"
	}
	return "wallet error"
}

func (e *WalletError) Unwrap() error { return e.Err }

// IsWalletError reports whether err is a WalletError of the given kind.
func IsWalletError(err error, kind ErrorKind) bool {
	var we *WalletError
	return errors.As(err, &we) && we.Kind == kind
}
