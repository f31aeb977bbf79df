package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "tracimfeed"

// EnvAPIKey overrides the stored API key when set.
const EnvAPIKey = "TRACIM_API_KEY"

// ErrNoAPIKey is returned when no API key is stored for the user.
var ErrNoAPIKey = errors.New("no API key stored")

// APIKeyName is the keyring entry holding the API key of username.
func APIKeyName(username string) string {
	return "tracim-api-key-" + username
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	fileDir := "~/.config/tracimfeed/credentials"
	if home, err := os.UserHomeDir(); err == nil {
		fileDir = filepath.Join(home, ".config", "tracimfeed", "credentials")
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("tracimfeed-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// APIKey returns the API key of username, from TRACIM_API_KEY if set and
// from the system keyring otherwise.
func APIKey(username string) (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}
	key, err := Get(APIKeyName(username))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w for %q", ErrNoAPIKey, username)
	}
	return key, err
}

// SetAPIKey stores the API key of username in the system keyring.
func SetAPIKey(username, apiKey string) error {
	return Set(APIKeyName(username), apiKey)
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "Tracim API key",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}
