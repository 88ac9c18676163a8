package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

// Profile defaults applied at registration.
const (
	DefaultPhone  = "0000000000"
	NotSelected   = "Not Selected"
	DefaultAvatar = "/media/default-avatar.png"
)

type Patient struct {
	Base
	Name         string  `json:"name" db:"name"`
	Email        string  `json:"email" db:"email"`
	PasswordHash string  `json:"-" db:"password_hash"`
	Image        string  `json:"image" db:"image"`
	Phone        string  `json:"phone" db:"phone"`
	Address      Address `json:"address" db:"address"`
	Gender       string  `json:"gender" db:"gender"`
	DOB          string  `json:"dob" db:"dob"`
}

// PatientSnapshot is the copy of a patient embedded in an appointment.
type PatientSnapshot struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Image   string    `json:"image"`
	Phone   string    `json:"phone"`
	Address Address   `json:"address"`
	Gender  string    `json:"gender"`
	DOB     string    `json:"dob"`
}

func (p *Patient) Snapshot() PatientSnapshot {
	return PatientSnapshot{
		ID:      p.ID,
		Name:    p.Name,
		Email:   p.Email,
		Image:   p.Image,
		Phone:   p.Phone,
		Address: p.Address,
		Gender:  p.Gender,
		DOB:     p.DOB,
	}
}

func (s PatientSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *PatientSnapshot) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// UpdateProfileRequest is the multipart profile form. Address is a JSON object.
type UpdateProfileRequest struct {
	Name    string `form:"name" binding:"required"`
	Phone   string `form:"phone" binding:"required"`
	Address string `form:"address" binding:"omitempty,json"`
	DOB     string `form:"dob" binding:"required"`
	Gender  string `form:"gender" binding:"required"`
}

// ProfileUpdate is the validated change set handed to the patient service.
type ProfileUpdate struct {
	Name    string
	Phone   string
	Address *Address
	DOB     string
	Gender  string
	// Image is the stored image URL, empty when no file was uploaded.
	Image string
}
