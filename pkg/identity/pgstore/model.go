package pgstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/chainsafe/cbdc-gateway/pkg/identity"
)

// IdentityDao is a data access object that maps directly to the 'identities' table in PostgreSQL.
type IdentityDao struct {
	bun.BaseModel       `bun:"table:identities,alias:i"`
	ID                  int64     `bun:"id,pk,autoincrement"`
	Name                string    `bun:"name,unique,notnull,type:varchar(255)"`
	OrganizationName    string    `bun:"organization_name,notnull,type:varchar(255)"`
	OrganizationType    string    `bun:"organization_type,notnull,type:varchar(32)"`
	MSPID               string    `bun:"msp_id,notnull,type:varchar(255)"`
	FullName            *string   `bun:"full_name,type:varchar(255)"`
	Certificate         string    `bun:"certificate,notnull,type:text"`
	PrivateKeyEncrypted string    `bun:"private_key_encrypted,notnull,type:text"`
	CreatedAt           time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func toSummary(dao *IdentityDao) identity.Summary {
	s := identity.Summary{
		Name:             dao.Name,
		OrganizationName: dao.OrganizationName,
		OrganizationType: identity.OrganizationType(dao.OrganizationType),
		MSPID:            dao.MSPID,
	}
	if dao.FullName != nil {
		s.FullName = *dao.FullName
	}
	return s
}
