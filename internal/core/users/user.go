package users

import (
	"math/big"
	"time"

	"Vouch/internal/core/content"
)

// LocalUserRecord caches the last successful registration for a DID. The
// contract is authoritative; this record can always be rebuilt from it.
// The JSON form is what the browser session stores under "userData".
type LocalUserRecord struct {
	CreatedAt   time.Time `json:"-" db:"created_at"`
	UpdatedAt   time.Time `json:"-" db:"updated_at"`
	FirstName   string    `json:"firstName" db:"first_name"`
	LastName    string    `json:"lastName" db:"last_name"`
	PassportNo  string    `json:"passportNo" db:"passport_no"`
	Birthday    string    `json:"birthday" db:"birthday"`
	DocFileName string    `json:"docFileName" db:"doc_file_name"`
	DIDID       string    `json:"didId" db:"did"`
	UserInfoCID string    `json:"userInfoCid" db:"user_info_cid"`
	FileHash    string    `json:"fileHash" db:"file_hash"`
	Wallet      string    `json:"wallet,omitempty" db:"wallet"`
}

// DisplayName is the name shown on the dashboard.
func (r *LocalUserRecord) DisplayName() string {
	switch {
	case r.FirstName != "" && r.LastName != "":
		return r.FirstName + " " + r.LastName
	case r.FirstName != "":
		return r.FirstName
	default:
		return r.DIDID
	}
}

// UserDetails joins the contract record for a DID with its stored profile.
type UserDetails struct {
	DID           string           `json:"did"`
	Profile       *content.Profile `json:"profile"`
	ProfileCID    string           `json:"profileCid"`
	DocumentCID   string           `json:"documentCid"`
	DepositAmount *big.Int         `json:"depositAmount"`
	Wallet        string           `json:"wallet"`
}

// SyncResult summarizes a cache rebuild.
type SyncResult struct {
	Seen    int `json:"seen"`
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}
