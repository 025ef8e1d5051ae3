package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"veil/internal/domain"
)

const (
	propertiesFile       = "properties.json"
	sealedPropertiesFile = "properties.json.enc"
)

var (
	// ErrUnsupportedValue is returned by SetProperty for value types the store cannot encode.
	ErrUnsupportedValue = errors.New("unsupported property value type")
)

// document is the on-disk JSON layout.
type document struct {
	Properties map[string]string   `json:"properties"`
	Lists      map[string][]string `json:"lists"`
}

// PropertyFileStore is a PropertyStore kept in memory and written through to
// a JSON file on every mutation. When opened with a passphrase the file is
// sealed with scrypt + ChaCha20-Poly1305.
type PropertyFileStore struct {
	path       string
	passphrase string
	log        *logrus.Entry

	mu  sync.RWMutex
	doc document
}

// NewMemoryPropertyStore returns a store that is never persisted.
func NewMemoryPropertyStore() *PropertyFileStore {
	return &PropertyFileStore{
		log: logrus.WithField("component", "property_store"),
		doc: emptyDocument(),
	}
}

// OpenPropertyFileStore loads the plain property file under dir, creating an
// empty store if it does not exist yet.
func OpenPropertyFileStore(dir string) (*PropertyFileStore, error) {
	return open(filepath.Join(dir, propertiesFile), "")
}

// OpenSealedPropertyFileStore loads the encrypted property file under dir.
// A wrong passphrase or a tampered file is reported as an error.
func OpenSealedPropertyFileStore(dir, passphrase string) (*PropertyFileStore, error) {
	if passphrase == "" {
		return nil, errors.New("sealed property store requires a passphrase")
	}
	return open(filepath.Join(dir, sealedPropertiesFile), passphrase)
}

func open(path, passphrase string) (*PropertyFileStore, error) {
	s := &PropertyFileStore{
		path:       path,
		passphrase: passphrase,
		log: logrus.WithFields(logrus.Fields{
			"component": "property_store",
			"path":      path,
		}),
		doc: emptyDocument(),
	}
	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return s, nil
	}
	if passphrase != "" {
		if raw, err = decrypt(passphrase, raw); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal(raw, &s.doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if s.doc.Properties == nil {
		s.doc.Properties = make(map[string]string)
	}
	if s.doc.Lists == nil {
		s.doc.Lists = make(map[string][]string)
	}
	return s, nil
}

func emptyDocument() document {
	return document{
		Properties: make(map[string]string),
		Lists:      make(map[string][]string),
	}
}

// Path returns the backing file, empty for memory stores.
func (s *PropertyFileStore) Path() string { return s.path }

func (s *PropertyFileStore) lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.doc.Properties[key]
	return v, ok
}

// GetString returns the raw value of key or def.
func (s *PropertyFileStore) GetString(key, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return def
}

// GetInt parses key as a base-10 integer.
func (s *PropertyFileStore) GetInt(key string, def int) int {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		s.log.WithFields(logrus.Fields{"key": key, "value": v}).Warn("Ignoring malformed integer property")
		return def
	}
	return n
}

// GetBool parses key with strconv.ParseBool.
func (s *PropertyFileStore) GetBool(key string, def bool) bool {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.log.WithFields(logrus.Fields{"key": key, "value": v}).Warn("Ignoring malformed boolean property")
		return def
	}
	return b
}

// GetBytes decodes key from standard base64.
func (s *PropertyFileStore) GetBytes(key string, def []byte) []byte {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	b, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		s.log.WithField("key", key).Warn("Ignoring malformed binary property")
		return def
	}
	return b
}

// SetProperty encodes value and writes it through to disk.
func (s *PropertyFileStore) SetProperty(key string, value any) error {
	enc, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(func(d *document) { d.Properties[key] = enc })
}

// RemoveProperty deletes key from both the scalar and list namespaces.
func (s *PropertyFileStore) RemoveProperty(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, scalar := s.doc.Properties[key]
	_, list := s.doc.Lists[key]
	if !scalar && !list {
		return nil
	}
	return s.commitLocked(func(d *document) {
		delete(d.Properties, key)
		delete(d.Lists, key)
	})
}

// AppendToList appends value to the list stored at key.
func (s *PropertyFileStore) AppendToList(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(func(d *document) {
		d.Lists[key] = append(d.Lists[key], value)
	})
}

// GetList returns a copy of the list stored at key.
func (s *PropertyFileStore) GetList(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.doc.Lists[key]...)
}

// Keys returns every scalar property name.
func (s *PropertyFileStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.doc.Properties))
	for k := range s.doc.Properties {
		out = append(out, k)
	}
	return out
}

// clone copies d deeply enough that mutating the copy leaves d untouched.
func (d document) clone() document {
	out := document{
		Properties: make(map[string]string, len(d.Properties)),
		Lists:      make(map[string][]string, len(d.Lists)),
	}
	for k, v := range d.Properties {
		out.Properties[k] = v
	}
	for k, v := range d.Lists {
		out.Lists[k] = append([]string(nil), v...)
	}
	return out
}

// commitLocked applies change to a copy of the document and keeps the copy
// only once it is on disk, so a failed write leaves memory and file equal.
func (s *PropertyFileStore) commitLocked(change func(d *document)) error {
	next := s.doc.clone()
	change(&next)
	if err := s.flush(next); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "commitLocked",
			"error":    err.Error(),
		}).Error("Property write failed, keeping previous values")
		return err
	}
	s.doc = next
	return nil
}

func (s *PropertyFileStore) flush(doc document) error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if s.passphrase != "" {
		N, r, p := scryptParamsDefault()
		if raw, err = encrypt(s.passphrase, raw, N, r, p); err != nil {
			return err
		}
	}
	return writeFile(s.path, raw, 0o600)
}

func encodeValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}

// Compile-time assertion that PropertyFileStore implements domain.PropertyStore.
var _ domain.PropertyStore = (*PropertyFileStore)(nil)
