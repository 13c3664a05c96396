package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/Klingon-tech/clawshield/pkg/crypto"
	"github.com/Klingon-tech/clawshield/pkg/types"
)

const keystoreVersion = 1

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrInvalidName    = errors.New("invalid wallet name")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// keystoreFile is the on-disk JSON format for one encrypted key.
type keystoreFile struct {
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	Address      string    `json:"address"`
	Source       string    `json:"source"`
	EncryptedKey []byte    `json:"encrypted_key"`
}

// Key sources recorded in the keystore.
const (
	SourceGenerated = "generated"
	SourceMnemonic  = "mnemonic"
	SourceImported  = "imported"
)

// Info is the public metadata of a stored wallet.
type Info struct {
	Name      string
	Address   types.PublicKey
	Source    string
	CreatedAt time.Time
}

// Keystore manages encrypted key files in one directory.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore rooted at path, creating it if needed.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// Path returns the keystore directory.
func (ks *Keystore) Path() string {
	return ks.path
}

func (ks *Keystore) walletPath(name string) (string, error) {
	if !validName.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(ks.path, name+".wallet"), nil
}

// Store encrypts key under password and writes it as wallet name.
func (ks *Keystore) Store(name string, key *crypto.PrivateKey, source string, password []byte, params EncryptionParams) error {
	path, err := ks.walletPath(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}

	seed := key.Seed()
	defer zero(seed)
	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt key: %w", err)
	}

	return ks.writeFile(path, &keystoreFile{
		Version:      keystoreVersion,
		CreatedAt:    time.Now().UTC(),
		Address:      key.PublicKey().String(),
		Source:       source,
		EncryptedKey: encrypted,
	})
}

// Load decrypts wallet name. The caller must Zero the returned key.
func (ks *Keystore) Load(name string, password []byte) (*crypto.PrivateKey, error) {
	kf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(kf.EncryptedKey, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet %q: %w", name, err)
	}
	defer zero(seed)

	key, err := crypto.PrivateKeyFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("wallet %q: %w", name, err)
	}
	if key.PublicKey().String() != kf.Address {
		key.Zero()
		return nil, fmt.Errorf("wallet %q: stored address does not match key", name)
	}
	return key, nil
}

// Info returns the public metadata of wallet name without decrypting it.
func (ks *Keystore) Info(name string) (*Info, error) {
	kf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	addr, err := types.ParsePublicKey(kf.Address)
	if err != nil {
		return nil, fmt.Errorf("wallet %q address: %w", name, err)
	}
	return &Info{Name: name, Address: addr, Source: kf.Source, CreatedAt: kf.CreatedAt}, nil
}

// List returns the names of all wallets, sorted.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes wallet name.
func (ks *Keystore) Delete(name string) error {
	path, err := ks.walletPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return fmt.Errorf("delete wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) read(name string) (*keystoreFile, error) {
	path, err := ks.walletPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}

// writeFile writes through a temp file so a crash never leaves a
// truncated keystore behind.
func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}
