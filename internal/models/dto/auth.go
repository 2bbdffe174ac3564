package dto

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hongminglow/fieldops-dashboard/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterRequest creates an admin or booth boy. Phone may arrive as either
// phone or phoneNumber.
type RegisterRequest struct {
	Username         string   `json:"username" validate:"required,max=64"`
	FullName         string   `json:"fullName" validate:"max=128"`
	Email            string   `json:"email" validate:"required,email"`
	Phone            string   `json:"phone"`
	PhoneNumber      string   `json:"phoneNumber"`
	Password         string   `json:"password" validate:"required,min=8,max=72"`
	Role             string   `json:"role" validate:"required"`
	AssignedBoothIDs []string `json:"assignedBoothIds" validate:"dive,required"`
	StateID          string   `json:"stateId"`
	DistrictID       string   `json:"districtId"`
	AssemblyID       string   `json:"assemblyId"`
}

// Validate checks field constraints after JSON binding.
func (r *RegisterRequest) Validate() error {
	return validate.Struct(r)
}

// NormalizedPhone returns whichever phone field was supplied.
func (r *RegisterRequest) NormalizedPhone() string {
	if trimmed := strings.TrimSpace(r.Phone); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(r.PhoneNumber)
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Validate checks field constraints after JSON binding.
func (r *LoginRequest) Validate() error {
	return validate.Struct(r)
}

type LoginResponse struct {
	Token string         `json:"token"`
	User  models.Account `json:"user"`
}
