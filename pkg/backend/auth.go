package backend

import (
	"context"
	"net/http"
)

// LoginResult is the backend's answer to a successful credential exchange.
type LoginResult struct {
	Token         string `json:"token"`
	Identity      string `json:"identity"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Identity string `json:"identity"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type linkWalletRequest struct {
	WalletAddress string `json:"walletAddress"`
	Message       string `json:"message,omitempty"`
	Signature     string `json:"signature,omitempty"`
}

// Login exchanges credentials for a session token. The token is installed on
// the client for subsequent authenticated calls.
func (c *Client) Login(ctx context.Context, email string, password string) (*LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &result, false)
	if err != nil {
		return nil, authError("Login failed", err)
	}
	c.SetToken(result.Token)
	return &result, nil
}

// Register creates a new account. The user logs in separately afterwards.
func (c *Client) Register(ctx context.Context, identity string, email string, password string) error {
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, registerRequest{Identity: identity, Email: email, Password: password}, nil, false)
	if err != nil {
		return authError("Registration failed", err)
	}
	return nil
}

// LinkWallet registers the connected account address with the session
// backend, carrying a signed sign-in-with-Ethereum message as proof of key
// ownership.
func (c *Client) LinkWallet(ctx context.Context, walletAddress string, message string, signature string) error {
	body := linkWalletRequest{WalletAddress: walletAddress, Message: message, Signature: signature}
	return c.do(ctx, http.MethodPost, "/user/link-wallet", nil, body, nil, true)
}

// ConnectWallet tells the backend the wallet session is live, so pushed
// change notifications can be scoped to the account.
func (c *Client) ConnectWallet(ctx context.Context, walletAddress string) error {
	body := linkWalletRequest{WalletAddress: walletAddress}
	return c.do(ctx, http.MethodPost, "/wallet/connect", nil, body, nil, true)
}

// DisconnectWallet tells the backend the wallet session ended.
func (c *Client) DisconnectWallet(ctx context.Context, walletAddress string) error {
	body := linkWalletRequest{WalletAddress: walletAddress}
	return c.do(ctx, http.MethodDelete, "/wallet/disconnect", nil, body, nil, true)
}
