// Package wallet reads identities from a directory of JSON bundles, one file
// per identity named "<name>.id" (or "<name>.json").
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chainsafe/cbdc-gateway/pkg/identity"
)

var extensions = []string{".id", ".json"}

// bundle is the on-disk layout of a wallet entry.
type bundle struct {
	Name             string `json:"name"`
	OrganizationName string `json:"organizationName"`
	OrganizationType string `json:"organizationType"`
	MSPID            string `json:"mspId"`
	FullName         string `json:"fullName"`
	Type             string `json:"type"`
	Credentials      struct {
		Certificate string `json:"certificate"`
		PrivateKey  string `json:"privateKey"`
	} `json:"credentials"`
}

// Store is a read-only identity.Store backed by a wallet directory.
type Store struct {
	dir string
}

// NewStore returns a store reading from dir. The directory must exist.
func NewStore(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open wallet: %s is not a directory", dir)
	}
	return &Store{dir: dir}, nil
}

// Get loads the identity called name.
func (s *Store) Get(_ context.Context, name string) (*identity.Identity, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", identity.ErrNotFound, name)
	}
	for _, ext := range extensions {
		path := filepath.Join(s.dir, name+ext)
		id, err := readBundle(path, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return id, err
	}
	return nil, fmt.Errorf("%w: %s", identity.ErrNotFound, name)
}

// List returns every identity in the wallet, sorted by name.
func (s *Store) List(_ context.Context) ([]identity.Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}

	seen := make(map[string]bool)
	var out []identity.Summary
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".id" && ext != ".json" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		id, err := readBundle(filepath.Join(s.dir, e.Name()), name)
		if err != nil {
			return nil, err
		}
		if seen[id.Name] {
			continue
		}
		seen[id.Name] = true
		out = append(out, id.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func readBundle(path, fallbackName string) (*identity.Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode wallet entry %s: %w", filepath.Base(path), err)
	}
	if b.Name == "" {
		b.Name = fallbackName
	}
	id := &identity.Identity{
		Name:             b.Name,
		OrganizationName: b.OrganizationName,
		OrganizationType: identity.OrganizationType(b.OrganizationType),
		MSPID:            b.MSPID,
		FullName:         b.FullName,
		Certificate:      []byte(b.Credentials.Certificate),
		PrivateKey:       []byte(b.Credentials.PrivateKey),
	}
	if err := id.Validate(); err != nil {
		return nil, fmt.Errorf("wallet entry %s: %w", filepath.Base(path), err)
	}
	return id, nil
}
