package gateway

import (
	"net/url"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
)

// Endpoint is one authenticated read.
type Endpoint struct {
	Name  string
	Path  string
	Query func(models.LocaleHint) url.Values
}

// FetchPlan names the four reads that make up one snapshot.
type FetchPlan struct {
	Name           string
	Users          Endpoint
	Voters         Endpoint
	Booths         Endpoint
	Constituencies Endpoint
}

var adminPlan = FetchPlan{
	Name:           "admin",
	Users:          Endpoint{Name: "users", Path: "/admin/users"},
	Voters:         Endpoint{Name: "voters", Path: "/admin/voters"},
	Booths:         Endpoint{Name: "assignedBooths", Path: "/admin/booths"},
	Constituencies: Endpoint{Name: "assignedConstituencies", Path: "/admin/constituencies"},
}

var generalPlan = FetchPlan{
	Name:   "general",
	Users:  Endpoint{Name: "users", Path: "/users"},
	Voters: Endpoint{Name: "voters", Path: "/voters"},
	Booths: Endpoint{Name: "boothsByLocale", Path: "/booths", Query: func(l models.LocaleHint) url.Values {
		return url.Values{"state_id": {l.StateID}, "district_id": {l.DistrictID}, "assembly_id": {l.AssemblyID}}
	}},
	Constituencies: Endpoint{Name: "assemblyByLocale", Path: "/assemblies", Query: func(l models.LocaleHint) url.Values {
		return url.Values{"state_id": {l.StateID}, "district_id": {l.DistrictID}}
	}},
}

var plans = map[models.Role]FetchPlan{
	models.RoleSuperAdmin: adminPlan,
	models.RoleAdmin:      adminPlan,
	models.RoleBoothBoy:   generalPlan,
}

// PlanFor returns the fetch plan for role. Roles without an entry use the
// general plan.
func PlanFor(role models.Role) FetchPlan {
	if p, ok := plans[role]; ok {
		return p
	}
	return generalPlan
}

func (e Endpoint) query(l models.LocaleHint) url.Values {
	if e.Query == nil {
		return nil
	}
	return e.Query(l)
}
