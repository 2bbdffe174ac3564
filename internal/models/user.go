package models

import "time"

// SystemUser is a field-operations account as it appears in dashboard snapshots.
// Role keeps the wire spelling; use ParseRole before comparing it.
type SystemUser struct {
	ID               string   `json:"id"`
	Username         string   `json:"username"`
	FullName         string   `json:"fullName"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	Role             string   `json:"role"`
	AssignedBoothIDs []string `json:"assignedBoothIds"`
	CreatedBy        string   `json:"createdBy"`
}

// Account is the server-side view of a user, carrying credentials and locale.
type Account struct {
	SystemUser
	StateID      string    `json:"stateId,omitempty"`
	DistrictID   string    `json:"districtId,omitempty"`
	AssemblyID   string    `json:"assemblyId,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Locale returns the account's locale identifiers.
func (a Account) Locale() LocaleHint {
	return LocaleHint{StateID: a.StateID, DistrictID: a.DistrictID, AssemblyID: a.AssemblyID}
}
