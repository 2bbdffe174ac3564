// Package stats derives dashboard counters from a snapshot.
package stats

import "github.com/hongminglow/fieldops-dashboard/internal/models"

// Compute returns the derived counters for s. It depends only on the
// collections' contents, never their order, and has no side effects.
func Compute(s models.Snapshot) models.DerivedStats {
	out := models.DerivedStats{
		TotalBooths:         len(s.Booths),
		TotalVoters:         len(s.Voters),
		TotalConstituencies: len(s.Constituencies),
	}
	for _, u := range s.Users {
		switch models.ParseRole(u.Role) {
		case models.RoleAdmin, models.RoleSuperAdmin:
			out.TotalAdmins++
		case models.RoleBoothBoy:
			out.TotalBoothBoys++
		}
	}
	return out
}

// Admins returns the users holding an admin or super admin role, in input order.
func Admins(users []models.SystemUser) []models.SystemUser {
	return filter(users, models.Role.IsAdmin)
}

// BoothBoys returns the booth volunteers, in input order.
func BoothBoys(users []models.SystemUser) []models.SystemUser {
	return filter(users, func(r models.Role) bool { return r == models.RoleBoothBoy })
}

func filter(users []models.SystemUser, keep func(models.Role) bool) []models.SystemUser {
	out := make([]models.SystemUser, 0, len(users))
	for _, u := range users {
		if keep(models.ParseRole(u.Role)) {
			out = append(out, u)
		}
	}
	return out
}
