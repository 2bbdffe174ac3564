package models

// Identity is the signed-in caller as seen by the dashboard.
type Identity struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Role     Role       `json:"role"`
	Locale   LocaleHint `json:"locale"`
	Token    string     `json:"-"`
}
