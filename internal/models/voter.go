package models

// VoterRecord is one row of the electoral roll plus collected survey fields.
// The dashboard core only counts these; the fields travel through untouched.
type VoterRecord struct {
	EPIC            string `json:"epic"`
	Name            string `json:"name"`
	RelativeName    string `json:"relativeName,omitempty"`
	Gender          string `json:"gender,omitempty"`
	Age             int    `json:"age,omitempty"`
	Mobile          string `json:"mobile,omitempty"`
	Address         string `json:"address,omitempty"`
	BoothID         string `json:"boothId,omitempty"`
	PartNumber      string `json:"partNumber,omitempty"`
	Caste           string `json:"caste,omitempty"`
	Religion        string `json:"religion,omitempty"`
	PartyPreference string `json:"partyPreference,omitempty"`
	SupportLevel    string `json:"supportLevel,omitempty"`
	CreatedBy       string `json:"createdBy,omitempty"`
}
