// Package keyring provides secure credential storage.
// It uses the system keyring when available, falling back to
// encrypted local file storage when not.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/argon2"

	"github.com/yllada/vpn-connector/common"
)

// Common errors returned by keyring operations.
var (
	ErrNotFound    = common.ErrCredentialsNotFound
	ErrEmptyName   = errors.New("connection name cannot be empty")
	ErrEmptySecret = errors.New("password cannot be empty")
)

// Backend names reported by Vault.Backend.
const (
	BackendSystem = "system"
	BackendFile   = "file"
)

const fileFormatVersion = 1

// Argon2id parameters for the fallback file key.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	kdfKeyLen  = 32
	saltLen    = 16
)

// Vault stores one password per connection name. Items live in the
// system keyring under the service name; if that keyring is unusable
// they go to an AES-GCM encrypted file instead.
type Vault struct {
	service   string
	path      string
	localOnly bool

	once     sync.Once
	mu       sync.RWMutex
	useLocal bool
	local    map[string]string
	salt     []byte
	key      []byte
}

// Option configures a Vault.
type Option func(*Vault)

// WithService sets the keyring service name.
func WithService(service string) Option {
	return func(v *Vault) { v.service = service }
}

// WithFile sets the fallback credentials file.
func WithFile(path string) Option {
	return func(v *Vault) { v.path = path }
}

// WithLocalOnly skips the system keyring entirely.
func WithLocalOnly() Option {
	return func(v *Vault) { v.localOnly = true }
}

// New creates a Vault. The backend is chosen on first use.
func New(opts ...Option) *Vault {
	v := &Vault{service: common.KeyringService}
	for _, opt := range opts {
		opt(v)
	}
	if v.path == "" {
		if dir, err := common.GetConfigDir(); err == nil {
			v.path = filepath.Join(dir, common.CredentialsFileName)
		}
	}
	return v
}

var (
	defaultVault     *Vault
	defaultVaultOnce sync.Once
)

// Default returns the process-wide Vault.
func Default() *Vault {
	defaultVaultOnce.Do(func() {
		defaultVault = New()
	})
	return defaultVault
}

func (v *Vault) init() {
	v.once.Do(func() {
		if v.localOnly {
			v.initLocalStorage()
			return
		}

		// Try system keyring first
		testKey := v.service + "-test-init"
		err := keyring.Set(v.service, testKey, "test")
		if err == nil {
			_ = keyring.Delete(v.service, testKey)
			return
		}
		common.LogDebug("System keyring unavailable, using %s: %v", v.path, err)
		v.initLocalStorage()
	})
}

func (v *Vault) initLocalStorage() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.useLocal = true
	v.local = make(map[string]string)
	if err := v.loadLocalStore(); err != nil {
		common.LogWarn("Ignoring unreadable credentials file %s: %v", v.path, err)
	}
}

// Backend reports which storage is in use.
func (v *Vault) Backend() string {
	v.init()
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.useLocal {
		return BackendFile
	}
	return BackendSystem
}

type credentialsFile struct {
	Version int    `json:"version"`
	Salt    string `json:"salt"`
	Data    string `json:"data"`
}

// loadLocalStore reads the fallback file. Callers hold v.mu.
func (v *Vault) loadLocalStore() error {
	if v.path == "" {
		return nil
	}
	raw, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var f credentialsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	salt, err := base64.StdEncoding.DecodeString(f.Salt)
	if err != nil {
		return err
	}
	v.salt = salt
	v.key = deriveKey(salt)

	decrypted, err := v.decrypt(f.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(decrypted, &v.local)
}

// saveLocalStore writes the fallback file. Callers hold v.mu.
func (v *Vault) saveLocalStore() error {
	if v.path == "" {
		return errors.New("no credentials file configured")
	}
	if v.key == nil {
		v.salt = make([]byte, saltLen)
		if _, err := io.ReadFull(rand.Reader, v.salt); err != nil {
			return err
		}
		v.key = deriveKey(v.salt)
	}

	data, err := json.Marshal(v.local)
	if err != nil {
		return err
	}
	encrypted, err := v.encrypt(data)
	if err != nil {
		return err
	}

	out, err := json.Marshal(credentialsFile{
		Version: fileFormatVersion,
		Salt:    base64.StdEncoding.EncodeToString(v.salt),
		Data:    encrypted,
	})
	if err != nil {
		return err
	}

	if err := common.EnsureDir(filepath.Dir(v.path)); err != nil {
		return err
	}
	return os.WriteFile(v.path, out, 0600)
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

// deriveKey stretches machine-specific data into an AES-256 key.
func deriveKey(salt []byte) []byte {
	hostname, _ := os.Hostname()
	secret := fmt.Sprintf("%s-%s-%s-%s", common.KeyringService, hostname, machineID(), currentUser())
	return argon2.IDKey([]byte(secret), salt, kdfTime, kdfMemory, kdfThreads, kdfKeyLen)
}

func (v *Vault) encrypt(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (v *Vault) decrypt(data string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// Store saves the password for a connection.
func (v *Vault) Store(name, password string) error {
	if name == "" {
		return ErrEmptyName
	}
	if password == "" {
		return ErrEmptySecret
	}
	v.init()

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.useLocal {
		err := keyring.Set(v.service, name, password)
		if err == nil {
			return nil
		}
		// Fall back to local storage
		common.LogWarn("System keyring rejected %s, falling back to file: %v", name, err)
		v.useLocal = true
		if v.local == nil {
			v.local = make(map[string]string)
			if err := v.loadLocalStore(); err != nil {
				common.LogWarn("Ignoring unreadable credentials file %s: %v", v.path, err)
			}
		}
	}

	v.local[name] = password
	return v.saveLocalStore()
}

// Get retrieves the password for a connection.
func (v *Vault) Get(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	v.init()

	v.mu.RLock()
	useLocal := v.useLocal
	password, exists := v.local[name]
	v.mu.RUnlock()

	if useLocal {
		if !exists {
			return "", ErrNotFound
		}
		return password, nil
	}

	password, err := keyring.Get(v.service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring lookup for %s: %w", name, err)
	}
	return password, nil
}

// Delete removes the password for a connection. Deleting a missing
// item is not an error.
func (v *Vault) Delete(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	v.init()

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.useLocal {
		if _, ok := v.local[name]; !ok {
			return nil
		}
		delete(v.local, name)
		return v.saveLocalStore()
	}

	if err := keyring.Delete(v.service, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete for %s: %w", name, err)
	}
	return nil
}

// Exists checks if a credential exists for a connection.
func (v *Vault) Exists(name string) bool {
	_, err := v.Get(name)
	return err == nil
}

var _ common.CredentialStore = (*Vault)(nil)
