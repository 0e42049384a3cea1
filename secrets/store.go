// Package secrets stores OAuth refresh tokens in the system keyring, falling
// back to an encrypted file backend when no OS keychain is available
// (containers, headless servers, cron).
package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
)

const serviceName = "xform-app-sheets"

// Store reads and writes cached OAuth2 tokens keyed by OAuth client ID.
type Store interface {
	PutToken(clientID string, token *oauth2.Token) error
	Token(clientID string) (*oauth2.Token, error)
	DeleteToken(clientID string) error
}

type keyringStore struct {
	ring keyring.Keyring
}

// Open opens the default token store. The directory holds the file-backend
// keyring when no OS keychain is usable.
func Open(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:      serviceName,
		FileDir:          dir,
		FilePasswordFunc: keyring.TerminalPrompt,
	})
	if err != nil {
		return nil, err
	}

	return &keyringStore{ring: ring}, nil
}

func (s *keyringStore) PutToken(clientID string, token *oauth2.Token) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return fmt.Errorf("missing OAuth client ID")
	}

	if token == nil || (token.RefreshToken == "" && token.AccessToken == "") {
		return fmt.Errorf("missing token")
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return err
	}

	return s.ring.Set(keyring.Item{
		Key:  tokenKey(clientID),
		Data: payload,
	})
}

func (s *keyringStore) Token(clientID string) (*oauth2.Token, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("missing OAuth client ID")
	}

	item, err := s.ring.Get(tokenKey(clientID))
	if err != nil {
		return nil, err
	}

	token := oauth2.Token{}
	if err := json.Unmarshal(item.Data, &token); err != nil {
		return nil, fmt.Errorf("corrupt cached token (%v)", err)
	}

	return &token, nil
}

func (s *keyringStore) DeleteToken(clientID string) error {
	return s.ring.Remove(tokenKey(strings.TrimSpace(clientID)))
}

// IsNotFound reports whether an error from Token means no cached token.
func IsNotFound(err error) bool {
	return err == keyring.ErrKeyNotFound
}

func tokenKey(clientID string) string {
	return "token:" + clientID
}
