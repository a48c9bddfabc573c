package keyring

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/yllada/vpn-connector/common"
)

func TestVault_SystemKeyring(t *testing.T) {
	keyring.MockInit()

	v := New(WithFile(filepath.Join(t.TempDir(), "credentials")))
	if got := v.Backend(); got != BackendSystem {
		t.Fatalf("Backend() = %v, want %v", got, BackendSystem)
	}

	if _, err := v.Get("Corp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on empty vault error = %v, want ErrNotFound", err)
	}

	if err := v.Store("Corp", "s3cret"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, err := v.Get("Corp")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Get() = %v, want s3cret", got)
	}
	if !v.Exists("Corp") {
		t.Error("Exists() should be true after Store()")
	}

	if err := v.Delete("Corp"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if v.Exists("Corp") {
		t.Error("Exists() should be false after Delete()")
	}
	if err := v.Delete("Corp"); err != nil {
		t.Errorf("Delete() of a missing item error = %v, want nil", err)
	}
}

func TestVault_FallsBackToFile(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)

	path := filepath.Join(t.TempDir(), "credentials")
	v := New(WithFile(path))

	if got := v.Backend(); got != BackendFile {
		t.Fatalf("Backend() = %v, want %v", got, BackendFile)
	}

	if err := v.Store("Corp", "s3cret"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(raw), "s3cret") {
		t.Error("credentials file stores the password in clear text")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("credentials file mode = %v, want 0600", info.Mode().Perm())
	}

	reopened := New(WithFile(path), WithLocalOnly())
	got, err := reopened.Get("Corp")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Get() after reopen = %v, want s3cret", got)
	}

	if err := reopened.Delete("Corp"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := New(WithFile(path), WithLocalOnly()).Get("Corp"); !errors.Is(err, common.ErrCredentialsNotFound) {
		t.Errorf("Get() after Delete() error = %v, want ErrCredentialsNotFound", err)
	}
}

func TestVault_CorruptFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	v := New(WithFile(path), WithLocalOnly())
	if _, err := v.Get("Corp"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := v.Store("Corp", "pw"); err != nil {
		t.Errorf("Store() over a corrupt file error = %v", err)
	}
}

func TestVault_Validation(t *testing.T) {
	v := New(WithFile(filepath.Join(t.TempDir(), "credentials")), WithLocalOnly())

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"store empty name", v.Store("", "pw"), ErrEmptyName},
		{"store empty password", v.Store("Corp", ""), ErrEmptySecret},
		{"delete empty name", v.Delete(""), ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if _, err := v.Get(""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Get(\"\") error = %v, want ErrEmptyName", err)
	}
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1 := deriveKey(salt)
	k2 := deriveKey(salt)
	if len(k1) != 32 {
		t.Fatalf("deriveKey() length = %d, want 32", len(k1))
	}
	if string(k1) != string(k2) {
		t.Error("deriveKey() is not deterministic for a fixed salt")
	}
	if string(deriveKey([]byte("fedcba9876543210"))) == string(k1) {
		t.Error("deriveKey() ignores the salt")
	}
}
