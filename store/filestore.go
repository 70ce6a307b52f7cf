package store

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-jose/go-jose/v3"
)

// FileStore persists the key/value snapshot to a single file, sealed at rest
// as a compact JWE (dir + A256GCM). The sealing key lives next to the state
// file with 0600 permissions and is generated on first use. Sealing keeps
// tokens out of casual reach on shared machines; it is not a defence against
// the machine's own user.
type FileStore struct {
	mu     sync.Mutex
	path   string
	key    []byte
	values map[string]string
}

// NewFileStore opens or creates the state file at path. A missing file
// yields an empty store; a missing key file yields a fresh sealing key.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("state path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	key, err := loadOrCreateKey(path + ".key")
	if err != nil {
		return nil, err
	}

	st := &FileStore{path: path, key: key, values: make(map[string]string)}
	if err := st.load(); err != nil {
		return nil, err
	}
	return st, nil
}

// Get retrieves a value by key.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value and rewrites the sealed snapshot.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.persist()
}

// Delete removes a key and rewrites the sealed snapshot.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.persist()
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state file: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}

	obj, err := jose.ParseEncrypted(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("parse state file: %w", err)
	}
	plain, err := obj.Decrypt(s.key)
	if err != nil {
		return fmt.Errorf("unseal state file: %w", err)
	}
	if err := json.Unmarshal(plain, &s.values); err != nil {
		return fmt.Errorf("decode state file: %w", err)
	}
	return nil
}

func (s *FileStore) persist() error {
	plain, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.DIRECT, Key: s.key}, nil)
	if err != nil {
		return fmt.Errorf("init sealer: %w", err)
	}
	obj, err := enc.Encrypt(plain)
	if err != nil {
		return fmt.Errorf("seal state: %w", err)
	}
	compact, err := obj.CompactSerialize()
	if err != nil {
		return fmt.Errorf("serialize state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(compact), 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func loadOrCreateKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		key, decErr := hex.DecodeString(strings.TrimSpace(string(raw)))
		if decErr != nil || len(key) != 32 {
			return nil, fmt.Errorf("key file %s is corrupt", path)
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate sealing key: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}
