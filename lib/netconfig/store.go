package netconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/facebookgo/atomicfile"

	apperrors "github.com/roamvpn/roam/lib/errors"
)

// FileExt is the extension of saved network config files.
const FileExt = ".json"

// Store persists network configs as one JSON file per network in a
// directory. Files are written atomically and readable only by the owner,
// since controller configs contain the secret key.
type Store struct {
	mu   sync.Mutex
	dir  string
	opts LoadOptions
}

// NewStore creates a store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string, opts LoadOptions) *Store {
	return &Store{
		dir:  dir,
		opts: opts,
	}
}

// Dir returns the store's directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file a network with the given name is stored in.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, fileStem(name)+FileExt)
}

// fileStem maps a network name to a filesystem-safe stem. Names that
// reduce to nothing use a hash of the name instead.
func fileStem(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	stem := strings.TrimSuffix(b.String(), "-")
	if stem == "" {
		sum := sha256.Sum256([]byte(name))
		return "network-" + hex.EncodeToString(sum[:4])
	}
	return stem
}

// Exists reports whether a config is saved under name.
func (s *Store) Exists(name string) bool {
	_, err := s.Load(name)
	return err == nil
}

// checkOwner fails when the file at path holds a network other than name.
// Distinct names can share a file stem, so the stem alone does not identify
// a network. Unreadable files are not checked.
func (s *Store) checkOwner(path, name string) error {
	existing, err := s.loadFile(path)
	if err != nil || existing.Name() == name {
		return nil
	}
	return apperrors.New(apperrors.KindAlreadyExists,
		fmt.Sprintf("%s already holds network %q", filepath.Base(path), existing.Name())).WithField("name")
}

// Save writes cfg to the store and returns the file path. An existing
// file for the same name is only replaced when overwrite is set.
func (s *Store) Save(cfg *NetworkConfig, overwrite bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(cfg.Name())
	if _, err := os.Stat(path); err == nil {
		if err := s.checkOwner(path, cfg.Name()); err != nil {
			return "", err
		}
		if !overwrite {
			return "", apperrors.New(apperrors.KindAlreadyExists,
				fmt.Sprintf("network %q is already saved", cfg.Name())).WithField("name")
		}
	}

	data, err := cfg.ToJSONIndent()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", fmt.Errorf("creating network config directory: %w", err)
	}

	f, err := atomicfile.New(path, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating network config file: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Abort()
		return "", fmt.Errorf("writing network config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("committing network config file: %w", err)
	}

	log.WithField("name", cfg.Name()).WithField("path", path).Debug("saved network config")
	return path, nil
}

// Load reads the config saved under name. A file whose record carries a
// different name is reported as not found.
func (s *Store) Load(name string) (*NetworkConfig, error) {
	cfg, err := s.loadFile(s.Path(name))
	if err != nil {
		return nil, err
	}
	if cfg.Name() != name {
		return nil, apperrors.New(apperrors.KindNotFound,
			fmt.Sprintf("network config not found: %s holds %q", filepath.Base(s.Path(name)), cfg.Name()))
	}
	return cfg, nil
}

func (s *Store) loadFile(path string) (*NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "network config not found", err)
		}
		return nil, fmt.Errorf("reading network config file: %w", err)
	}

	cfg, err := ParseJSON(data, s.opts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// List loads every saved config, sorted by name. Files that fail to load
// are skipped and logged; a missing directory yields an empty list.
func (s *Store) List() ([]*NetworkConfig, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading network config directory: %w", err)
	}

	var configs []*NetworkConfig
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != FileExt {
			continue
		}
		cfg, err := s.loadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			log.WithField("file", e.Name()).WithError(err).Warn("skipping unreadable network config")
			continue
		}
		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name() < configs[j].Name()
	})
	return configs, nil
}

// Remove deletes the config saved under name.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(name)
	if err := s.checkOwner(path, name); err != nil {
		return apperrors.New(apperrors.KindNotFound, "network config not found: "+err.Error())
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return apperrors.Wrap(apperrors.KindNotFound, "network config not found", err)
		}
		return fmt.Errorf("removing network config file: %w", err)
	}
	return nil
}
