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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestFileBackend(t *testing.T, masterKey string) (*FileBackend, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forest-mcp", "secrets.enc")
	backend, err := NewFileBackend(path, masterKey)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	return backend, path
}

func TestFileBackend_Metadata(t *testing.T) {
	backend, path := newTestFileBackend(t, "test-master-key-123")

	if backend.Name() != "file" {
		t.Errorf("Name() = %v, want file", backend.Name())
	}
	if backend.Priority() != FileBackendPriority {
		t.Errorf("Priority() = %v, want %v", backend.Priority(), FileBackendPriority)
	}
	if !backend.Available() {
		t.Error("Available() = false, want true")
	}
	if backend.Path() != path {
		t.Errorf("Path() = %q, want %q", backend.Path(), path)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		t.Errorf("parent directory not created: %v", err)
	}
}

func TestFileBackend_SetGetDelete(t *testing.T) {
	backend, path := newTestFileBackend(t, "test-master-key-for-encryption-123")
	ctx := context.Background()
	record := `{"serverUrl":"https://x.test","token":"abc"}`

	if err := backend.Set(ctx, "credentials/forestMcpBearerApi", record); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file permissions = %o, want 0600", info.Mode().Perm())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(raw), "abc") || strings.Contains(string(raw), "x.test") {
		t.Error("encrypted file contains plaintext")
	}

	got, err := backend.Get(ctx, "credentials/forestMcpBearerApi")
	if err != nil || got != record {
		t.Errorf("Get() = %q, %v; want %q", got, err, record)
	}

	if err := backend.Set(ctx, "credentials/forestMcpOAuth2Api", "{}"); err != nil {
		t.Fatalf("Set() second key error = %v", err)
	}
	keys, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "credentials/forestMcpBearerApi" || keys[1] != "credentials/forestMcpOAuth2Api" {
		t.Errorf("List() = %v", keys)
	}

	if err := backend.Delete(ctx, "credentials/forestMcpBearerApi"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := backend.Get(ctx, "credentials/forestMcpBearerApi"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrSecretNotFound", err)
	}
	if err := backend.Delete(ctx, "credentials/forestMcpBearerApi"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSecretNotFound", err)
	}
}

func TestFileBackend_MissingFile(t *testing.T) {
	backend, _ := newTestFileBackend(t, "k")
	ctx := context.Background()

	if _, err := backend.Get(ctx, "any"); !errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() error = %v, want ErrSecretNotFound", err)
	}
	keys, err := backend.List(ctx)
	if err != nil || len(keys) != 0 {
		t.Errorf("List() = %v, %v; want empty", keys, err)
	}
}

func TestFileBackend_WrongMasterKey(t *testing.T) {
	backend, path := newTestFileBackend(t, "correct-key")
	ctx := context.Background()
	if err := backend.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	other, err := NewFileBackend(path, "wrong-key")
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	_, err = other.Get(ctx, "k")
	if err == nil || errors.Is(err, ErrSecretNotFound) {
		t.Errorf("Get() with wrong key error = %v, want decryption failure", err)
	}
}

func TestFileBackend_MasterKeyFromEnv(t *testing.T) {
	t.Setenv(MasterKeyEnv, "from-env")
	backend, _ := newTestFileBackend(t, "")
	if !backend.Available() {
		t.Error("Available() = false with " + MasterKeyEnv + " set")
	}
}

func TestFileBackend_NoMasterKey(t *testing.T) {
	t.Setenv(MasterKeyEnv, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	backend, _ := newTestFileBackend(t, "")
	if backend.Available() {
		t.Fatal("Available() = true without a master key")
	}
	if err := backend.Set(context.Background(), "k", "v"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Set() error = %v, want ErrBackendUnavailable", err)
	}
}

func TestVerifyFilePermissions(t *testing.T) {
	dir := t.TempDir()

	strict := filepath.Join(dir, "strict")
	if err := os.WriteFile(strict, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := verifyFilePermissions(strict); err != nil {
		t.Errorf("0600 file rejected: %v", err)
	}

	loose := filepath.Join(dir, "loose")
	if err := os.WriteFile(loose, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(loose, 0644); err != nil {
		t.Fatal(err)
	}
	if err := verifyFilePermissions(loose); err == nil {
		t.Error("0644 file accepted")
	}

	link := filepath.Join(dir, "link")
	if err := os.Symlink(strict, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := verifyFilePermissions(link); err == nil {
		t.Error("symlink accepted")
	}
}
