// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secrets

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	// FileBackendPriority is the priority for encrypted file backend.
	FileBackendPriority = 25

	// MasterKeyEnv names the environment variable holding the file backend master key.
	MasterKeyEnv = "FOREST_MCP_MASTER_KEY"

	argon2Time        = 3
	argon2Memory      = 64 * 1024 // KiB
	argon2Parallelism = 4
	argon2KeyLength   = 32 // AES-256

	saltSize     = 16
	gcmNonceSize = 12
)

// FileBackend stores secrets in a JSON document sealed with AES-256-GCM.
// The encryption key is derived with Argon2id from a master key taken from:
//  1. the masterKey argument
//  2. FOREST_MCP_MASTER_KEY
//  3. <config dir>/forest-mcp/master.key (must be 0600)
//
// Without a master key the backend reports itself unavailable.
type FileBackend struct {
	path      string
	masterKey []byte
	mu        sync.RWMutex
	available bool
}

// sealedFile is the on-disk layout.
type sealedFile struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

// DefaultSecretsPath returns <config dir>/forest-mcp/secrets.enc.
func DefaultSecretsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "forest-mcp", "secrets.enc"), nil
}

// NewFileBackend creates an encrypted file backend at path, or at
// DefaultSecretsPath when path is empty.
func NewFileBackend(path string, masterKey string) (*FileBackend, error) {
	if path == "" {
		p, err := DefaultSecretsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	key, err := resolveMasterKey(masterKey)
	if err != nil {
		return &FileBackend{path: path}, nil
	}

	backend := &FileBackend{
		path:      path,
		masterKey: key,
		available: true,
	}
	if err := backend.ensureParentDir(); err != nil {
		return nil, fmt.Errorf("failed to create parent directory: %w", err)
	}
	return backend, nil
}

// Name returns the backend identifier.
func (f *FileBackend) Name() string {
	return "file"
}

// Path returns the location of the encrypted file.
func (f *FileBackend) Path() string {
	return f.path
}

// Get retrieves a secret from the encrypted file.
func (f *FileBackend) Get(ctx context.Context, key string) (string, error) {
	if !f.available {
		return "", fmt.Errorf("%w: master key not available", ErrBackendUnavailable)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	secrets, err := f.load()
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
		}
		return "", fmt.Errorf("failed to load secrets: %w", err)
	}

	value, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return value, nil
}

// Set stores a secret in the encrypted file.
func (f *FileBackend) Set(ctx context.Context, key string, value string) error {
	return f.update(func(secrets map[string]string) error {
		secrets[key] = value
		return nil
	})
}

// Delete removes a secret from the encrypted file.
func (f *FileBackend) Delete(ctx context.Context, key string) error {
	return f.update(func(secrets map[string]string) error {
		if _, ok := secrets[key]; !ok {
			return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
		}
		delete(secrets, key)
		return nil
	})
}

// List returns all secret keys from the encrypted file, sorted.
func (f *FileBackend) List(ctx context.Context) ([]string, error) {
	if !f.available {
		return nil, fmt.Errorf("%w: master key not available", ErrBackendUnavailable)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	secrets, err := f.load()
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Available returns true if the master key is available.
func (f *FileBackend) Available() bool {
	return f.available
}

// Priority returns the backend priority.
func (f *FileBackend) Priority() int {
	return FileBackendPriority
}

func (f *FileBackend) update(mutate func(map[string]string) error) error {
	if !f.available {
		return fmt.Errorf("%w: master key not available", ErrBackendUnavailable)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	secrets, err := f.load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if secrets == nil {
		secrets = make(map[string]string)
	}
	if err := mutate(secrets); err != nil {
		return err
	}
	if err := f.save(secrets); err != nil {
		return fmt.Errorf("failed to save secrets: %w", err)
	}
	return nil
}

func (f *FileBackend) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var sealed sealedFile
	if err := json.Unmarshal(raw, &sealed); err != nil {
		return nil, fmt.Errorf("invalid encrypted data format: %w", err)
	}

	gcm, err := f.aead(sealed.Salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, sealed.Nonce, sealed.Data, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong master key or corrupted data): %w", err)
	}
	defer zeroBytes(plaintext)

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("invalid decrypted data format: %w", err)
	}
	return secrets, nil
}

func (f *FileBackend) save(secrets map[string]string) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	defer zeroBytes(plaintext)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	gcm, err := f.aead(salt)
	if err != nil {
		return err
	}

	out, err := json.Marshal(sealedFile{
		Salt:  salt,
		Nonce: nonce,
		Data:  gcm.Seal(nil, nonce, plaintext, nil),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal encrypted data: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, out, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return verifyFilePermissions(f.path)
}

// aead derives the per-file key from the master key and salt.
func (f *FileBackend) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(f.masterKey, salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLength)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func (f *FileBackend) ensureParentDir() error {
	dir := filepath.Dir(f.path)
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("parent path exists but is not a directory: %s", dir)
		}
		return nil
	}
	return os.MkdirAll(dir, 0700)
}

func resolveMasterKey(providedKey string) ([]byte, error) {
	if providedKey != "" {
		return []byte(providedKey), nil
	}
	if envKey := os.Getenv(MasterKeyEnv); envKey != "" {
		return []byte(envKey), nil
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		keyPath := filepath.Join(configDir, "forest-mcp", "master.key")
		if key, err := os.ReadFile(keyPath); err == nil && verifyFilePermissions(keyPath) == nil {
			return key, nil
		}
	}

	return nil, errors.New("master key not available (set " + MasterKeyEnv + " or create <config dir>/forest-mcp/master.key)")
}

// verifyFilePermissions rejects symlinks and anything looser than 0600.
func verifyFilePermissions(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return errors.New("file is a symlink (not allowed for security)")
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("file permissions too open (got %o, want 0600)", perm)
	}
	return nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
