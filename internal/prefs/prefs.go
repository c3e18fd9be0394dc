// Package prefs is the client-local key-value persistence for UI state: the
// collapsible-section flags and the PIN lock hash. Values are namespaced per
// user id, with a fixed anonymous namespace when nobody is signed in, so
// state never leaks between accounts on a shared device.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

const anonNamespace = "anon"

// KeyCollapse and KeyPINHash are the well-known preference keys.
const (
	KeyCollapse = "ui.collapsed"
	KeyPINHash  = "lock.pin_hash"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Store persists one JSON document per namespace under a base directory.
type Store struct {
	mu   sync.Mutex
	base string
}

func NewStore(base string) (*Store, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("create prefs directory: %w", err)
	}
	return &Store{base: base}, nil
}

// Namespace maps a user id to its storage namespace, falling back to the
// anonymous one.
func Namespace(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return anonNamespace
	}
	return unsafeChars.ReplaceAllString(userID, "_")
}

// Get returns the stored value for key in the user's namespace, or ok=false.
func (s *Store) Get(userID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(Namespace(userID))
	if err != nil {
		return "", false, err
	}
	v, ok := doc[key]
	return v, ok, nil
}

// Set writes key=value in the user's namespace.
func (s *Store) Set(userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := Namespace(userID)
	doc, err := s.load(ns)
	if err != nil {
		return err
	}
	doc[key] = value
	return s.save(ns, doc)
}

// Delete removes key from the user's namespace. Missing keys are not an
// error.
func (s *Store) Delete(userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := Namespace(userID)
	doc, err := s.load(ns)
	if err != nil {
		return err
	}
	delete(doc, key)
	return s.save(ns, doc)
}

func (s *Store) path(ns string) string {
	return filepath.Join(s.base, ns+".json")
}

func (s *Store) load(ns string) (map[string]string, error) {
	raw, err := os.ReadFile(s.path(ns))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs: %w", err)
	}
	doc := map[string]string{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		// A corrupt prefs file resets to empty rather than wedging the UI.
		return map[string]string{}, nil
	}
	return doc, nil
}

func (s *Store) save(ns string, doc map[string]string) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	tmp := s.path(ns) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path(ns)); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}
