package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by the oauth2 bridge when the holder is empty.
var ErrNoToken = errors.New("no credential set")

// Holder keeps the current bearer credential for outgoing API calls.
//
// It starts empty, is filled by the sign-in flow and cleared on sign-out.
// Readers always see either the previous or the new token, never a torn value.
type Holder struct {
	mu    sync.RWMutex
	token string
}

// NewHolder creates an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Set stores token as the current credential. An empty token clears the holder.
func (h *Holder) Set(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

// Clear removes the current credential.
func (h *Holder) Clear() {
	h.Set("")
}

// Token returns the current credential and whether one is present.
func (h *Holder) Token() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token, h.token != ""
}

// SetFromSource pulls a token from an identity provider token source and stores
// its access token.
func (h *Holder) SetFromSource(ctx context.Context, ts oauth2.TokenSource) error {
	if ts == nil {
		return fmt.Errorf("token source is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("fetch token: %w", err)
	}
	if !tok.Valid() {
		return fmt.Errorf("token source returned an invalid token")
	}
	h.Set(tok.AccessToken)
	return nil
}

// TokenSource exposes the holder as an oauth2.TokenSource so that other
// clients (for example oauth2.NewClient) can share the same credential.
func (h *Holder) TokenSource() oauth2.TokenSource {
	return holderSource{h: h}
}

type holderSource struct {
	h *Holder
}

func (s holderSource) Token() (*oauth2.Token, error) {
	tok, ok := s.h.Token()
	if !ok {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}
