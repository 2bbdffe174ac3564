package models

// PollingBooth is a physical voting location within an assembly constituency.
type PollingBooth struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	Name         string `json:"name"`
	StateCode    string `json:"stateCode"`
	DistrictCode string `json:"districtCode"`
	AssemblyID   string `json:"assemblyId"`
}

// Constituency is an assembly constituency.
type Constituency struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	District string `json:"district"`
}

// LocaleHint narrows general-scope reads to one state, district and assembly.
type LocaleHint struct {
	StateID    string `json:"stateId"`
	DistrictID string `json:"districtId"`
	AssemblyID string `json:"assemblyId"`
}

// WithDefaults fills empty fields from def.
func (l LocaleHint) WithDefaults(def LocaleHint) LocaleHint {
	if l.StateID == "" {
		l.StateID = def.StateID
	}
	if l.DistrictID == "" {
		l.DistrictID = def.DistrictID
	}
	if l.AssemblyID == "" {
		l.AssemblyID = def.AssemblyID
	}
	return l
}
