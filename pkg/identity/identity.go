// Package identity describes the enrolled ledger identities the gateway acts as.
//
// Identities are owned by an external store; the gateway only reads them, one
// lookup per operation, and never caches key material between calls.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// OrganizationType distinguishes the issuing central bank from commercial banks.
type OrganizationType string

const (
	CentralBank    OrganizationType = "central_bank"
	CommercialBank OrganizationType = "commercial_bank"
)

// Valid reports whether t is a known organization type.
func (t OrganizationType) Valid() bool {
	return t == CentralBank || t == CommercialBank
}

// ErrNotFound is returned by stores when no identity has the requested name.
var ErrNotFound = errors.New("identity not found")

// Identity is an enrolled member of the network. Certificate and PrivateKey hold PEM data.
type Identity struct {
	Name             string
	OrganizationName string
	OrganizationType OrganizationType
	MSPID            string
	FullName         string
	Certificate      []byte
	PrivateKey       []byte
}

// Summary is the public view of an identity, free of key material.
type Summary struct {
	Name             string           `json:"name"`
	OrganizationName string           `json:"organizationName"`
	OrganizationType OrganizationType `json:"organizationType"`
	MSPID            string           `json:"mspId"`
	FullName         string           `json:"fullName,omitempty"`
}

// Store resolves identities by name.
type Store interface {
	Get(ctx context.Context, name string) (*Identity, error)
	List(ctx context.Context) ([]Summary, error)
}

// Designation returns the user part of the name, e.g. "Admin" for "Admin@bank.example.com".
func (i *Identity) Designation() string {
	user, _, _ := strings.Cut(i.Name, "@")
	return user
}

// Domain returns the part of the name after '@', falling back to the organization name.
func (i *Identity) Domain() string {
	if _, domain, ok := strings.Cut(i.Name, "@"); ok && domain != "" {
		return domain
	}
	return i.OrganizationName
}

// Summary returns the public view of i.
func (i *Identity) Summary() Summary {
	return Summary{
		Name:             i.Name,
		OrganizationName: i.OrganizationName,
		OrganizationType: i.OrganizationType,
		MSPID:            i.MSPID,
		FullName:         i.FullName,
	}
}

// Validate checks that the identity carries everything needed to open a session.
func (i *Identity) Validate() error {
	switch {
	case i.Name == "":
		return errors.New("identity name is empty")
	case i.MSPID == "":
		return fmt.Errorf("identity %s: msp id is empty", i.Name)
	case !i.OrganizationType.Valid():
		return fmt.Errorf("identity %s: unknown organization type %q", i.Name, i.OrganizationType)
	case len(i.Certificate) == 0:
		return fmt.Errorf("identity %s: certificate is empty", i.Name)
	case len(i.PrivateKey) == 0:
		return fmt.Errorf("identity %s: private key is empty", i.Name)
	}
	return nil
}
