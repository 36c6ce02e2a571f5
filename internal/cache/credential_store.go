package cache

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/GTDGit/elit_catalog/pkg/elit"
)

const nonceSize = 24

// ErrCredentialsNotFound is returned when no credentials are cached for the account.
var ErrCredentialsNotFound = errors.New("credentials not found in cache")

// ErrCredentialsCorrupt is returned when a cached entry cannot be opened.
var ErrCredentialsCorrupt = errors.New("cached credentials could not be decrypted")

// storedCredentials is the sealed payload kept in Redis.
type storedCredentials struct {
	Credentials elit.Credentials `json:"credentials"`
	CachedAt    time.Time        `json:"cachedAt"`
}

// CredentialStore keeps the last working ELIT credentials so a restart can
// reload the catalog without asking the user again. Entries are sealed with
// NaCl secretbox; Redis never sees the token in clear text.
type CredentialStore struct {
	redis *RedisClient
	key   [32]byte
	ttl   time.Duration
}

// NewCredentialStore creates a store whose sealing key is derived from secret.
func NewCredentialStore(redis *RedisClient, secret string, ttl time.Duration) *CredentialStore {
	return &CredentialStore{
		redis: redis,
		key:   blake2b.Sum256([]byte(secret)),
		ttl:   ttl,
	}
}

// keyDefault holds the credentials used for the startup load.
func (s *CredentialStore) keyDefault() string {
	return "elit:credentials:default"
}

// Save seals creds and stores them as the default account.
func (s *CredentialStore) Save(ctx context.Context, creds elit.Credentials) error {
	plain, err := json.Marshal(storedCredentials{Credentials: creds, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.key)

	if err := s.redis.Set(ctx, s.keyDefault(), string(sealed), s.ttl); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// Load returns the cached default credentials.
func (s *CredentialStore) Load(ctx context.Context) (elit.Credentials, error) {
	raw, err := s.redis.Get(ctx, s.keyDefault())
	if errors.Is(err, redis.Nil) {
		return elit.Credentials{}, ErrCredentialsNotFound
	}
	if err != nil {
		return elit.Credentials{}, err
	}

	sealed := []byte(raw)
	if len(sealed) < nonceSize {
		return elit.Credentials{}, ErrCredentialsCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return elit.Credentials{}, ErrCredentialsCorrupt
	}

	var stored storedCredentials
	if err := json.Unmarshal(plain, &stored); err != nil {
		return elit.Credentials{}, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return stored.Credentials, nil
}

// Delete forgets the cached credentials.
func (s *CredentialStore) Delete(ctx context.Context) error {
	return s.redis.Delete(ctx, s.keyDefault())
}
