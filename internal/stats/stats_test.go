package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
)

func usersWithRoles(roles ...string) []models.SystemUser {
	out := make([]models.SystemUser, len(roles))
	for i, r := range roles {
		out[i] = models.SystemUser{ID: r + "-" + string(rune('a'+i)), Role: r}
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		snapshot models.Snapshot
		expected models.DerivedStats
	}{
		{
			name:     "empty snapshot",
			snapshot: models.Snapshot{},
			expected: models.DerivedStats{},
		},
		{
			name:     "mixed case roles",
			snapshot: models.Snapshot{Users: usersWithRoles("admin", "booth_boy", "Admin", "boothboy")},
			expected: models.DerivedStats{TotalAdmins: 2, TotalBoothBoys: 2},
		},
		{
			name:     "super admin counts as admin",
			snapshot: models.Snapshot{Users: usersWithRoles("SUPER_ADMIN", "super_admin", "BoothBoy")},
			expected: models.DerivedStats{TotalAdmins: 2, TotalBoothBoys: 1},
		},
		{
			name:     "unknown roles are ignored",
			snapshot: models.Snapshot{Users: usersWithRoles("observer", "", "volunteer")},
			expected: models.DerivedStats{},
		},
		{
			name: "collection sizes",
			snapshot: models.Snapshot{
				Voters:         make([]models.VoterRecord, 7),
				Booths:         make([]models.PollingBooth, 3),
				Constituencies: make([]models.Constituency, 2),
			},
			expected: models.DerivedStats{TotalVoters: 7, TotalBooths: 3, TotalConstituencies: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compute(tt.snapshot))
		})
	}
}

func TestComputeIsOrderIndependent(t *testing.T) {
	orders := [][]string{
		{"admin", "booth_boy", "Admin", "boothboy"},
		{"boothboy", "Admin", "booth_boy", "admin"},
		{"booth_boy", "boothboy", "admin", "Admin"},
	}
	for _, order := range orders {
		got := Compute(models.Snapshot{Users: usersWithRoles(order...)})
		assert.Equal(t, 2, got.TotalAdmins, "order %v", order)
		assert.Equal(t, 2, got.TotalBoothBoys, "order %v", order)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	s := models.Snapshot{Users: usersWithRoles("admin", "booth_boy")}
	assert.Equal(t, Compute(s), Compute(s))
	assert.Len(t, s.Users, 2)
}

func TestAdminsAndBoothBoys(t *testing.T) {
	users := usersWithRoles("admin", "booth_boy", "super_admin", "observer", "BOOTHBOY")

	admins := Admins(users)
	assert.Len(t, admins, 2)
	assert.Equal(t, "admin", admins[0].Role)
	assert.Equal(t, "super_admin", admins[1].Role)

	boys := BoothBoys(users)
	assert.Len(t, boys, 2)
	assert.Equal(t, "booth_boy", boys[0].Role)
	assert.Equal(t, "BOOTHBOY", boys[1].Role)
}
