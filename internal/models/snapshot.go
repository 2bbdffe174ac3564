package models

import "time"

// Bundle is the uniform result of one remote fetch, whichever endpoints served it.
type Bundle struct {
	Users          []SystemUser   `json:"users"`
	Voters         []VoterRecord  `json:"voters"`
	Booths         []PollingBooth `json:"booths"`
	Constituencies []Constituency `json:"constituencies"`
}

// Snapshot is the unit of caching: the four collections plus their fetch time.
type Snapshot struct {
	Users          []SystemUser   `json:"users"`
	Voters         []VoterRecord  `json:"voters"`
	Booths         []PollingBooth `json:"booths"`
	Constituencies []Constituency `json:"constituencies"`
	LastUpdated    time.Time      `json:"lastUpdated"`
}

// NewSnapshot stamps a fetched bundle with its creation time.
func NewSnapshot(b Bundle, at time.Time) Snapshot {
	return Snapshot{
		Users:          b.Users,
		Voters:         b.Voters,
		Booths:         b.Booths,
		Constituencies: b.Constituencies,
		LastUpdated:    at,
	}
}

// Clone returns a copy whose slices do not alias s. Empty collections stay
// empty rather than becoming nil.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Voters:         cloneSlice(s.Voters),
		Booths:         cloneSlice(s.Booths),
		Constituencies: cloneSlice(s.Constituencies),
		LastUpdated:    s.LastUpdated,
	}
	if s.Users != nil {
		out.Users = make([]SystemUser, len(s.Users))
		for i, u := range s.Users {
			if u.AssignedBoothIDs != nil {
				u.AssignedBoothIDs = append([]string(nil), u.AssignedBoothIDs...)
			}
			out.Users[i] = u
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// DerivedStats are the dashboard counters; always recomputed, never stored.
type DerivedStats struct {
	TotalAdmins         int `json:"totalAdmins"`
	TotalBoothBoys      int `json:"totalBoothBoys"`
	TotalBooths         int `json:"totalBooths"`
	TotalVoters         int `json:"totalVoters"`
	TotalConstituencies int `json:"totalConstituencies"`
}
