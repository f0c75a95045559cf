// Package role derives a caller's authority from the identity the gateway
// resolved for the call. Nothing supplied by the caller is consulted.
package role

import (
	"strings"

	"github.com/chainsafe/cbdc-gateway/pkg/identity"
)

// Role is the coarse authority level of a caller.
type Role string

const (
	CentralBank Role = "central_bank"
	BankAdmin   Role = "bank_admin"
	EndUser     Role = "end_user"
)

// adminDesignation is the user part that marks an organization administrator.
const adminDesignation = "admin"

// CallerRole describes who is calling and what they may see.
type CallerRole struct {
	CallerID      string `json:"callerId"`
	CallerDomain  string `json:"callerDomain"`
	IsAdmin       bool   `json:"isAdmin"`
	IsCentralBank bool   `json:"isCentralBank"`
	Role          Role   `json:"role"`
}

// Derive computes the caller role for id. Central bank identities are always
// central bank callers, whatever their designation.
func Derive(id *identity.Identity) CallerRole {
	r := CallerRole{
		CallerID:     id.Name,
		CallerDomain: id.Domain(),
		IsAdmin:      strings.EqualFold(id.Designation(), adminDesignation),
	}
	switch {
	case id.OrganizationType == identity.CentralBank:
		r.IsCentralBank = true
		r.Role = CentralBank
	case r.IsAdmin:
		r.Role = BankAdmin
	default:
		r.Role = EndUser
	}
	return r
}

// Equal reports whether two roles grant the same authority.
func (r CallerRole) Equal(o CallerRole) bool {
	return r.IsAdmin == o.IsAdmin && r.IsCentralBank == o.IsCentralBank
}
