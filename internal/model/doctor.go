package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

// SlotsBooked maps a day-key to the claimed time-labels of that day.
type SlotsBooked map[string][]string

// Has reports whether the label is claimed on the given day.
func (s SlotsBooked) Has(dayKey, timeLabel string) bool {
	for _, label := range s[dayKey] {
		if label == timeLabel {
			return true
		}
	}
	return false
}

type Doctor struct {
	Base
	Name         string      `json:"name" db:"name"`
	Email        string      `json:"email" db:"email"`
	PasswordHash string      `json:"-" db:"password_hash"`
	Image        string      `json:"image" db:"image"`
	Speciality   string      `json:"speciality" db:"speciality"`
	Degree       string      `json:"degree" db:"degree"`
	Experience   string      `json:"experience" db:"experience"`
	About        string      `json:"about" db:"about"`
	Fees         float64     `json:"fees" db:"fees"`
	Address      Address     `json:"address" db:"address"`
	Available    bool        `json:"available" db:"available"`
	SlotsBooked  SlotsBooked `json:"slots_booked" db:"-"`
}

// DoctorSnapshot is the copy of a doctor embedded in an appointment.
// It never carries the ledger or the password hash.
type DoctorSnapshot struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Image      string    `json:"image"`
	Speciality string    `json:"speciality"`
	Degree     string    `json:"degree"`
	Experience string    `json:"experience"`
	About      string    `json:"about"`
	Fees       float64   `json:"fees"`
	Address    Address   `json:"address"`
}

func (d *Doctor) Snapshot() DoctorSnapshot {
	return DoctorSnapshot{
		ID:         d.ID,
		Name:       d.Name,
		Email:      d.Email,
		Image:      d.Image,
		Speciality: d.Speciality,
		Degree:     d.Degree,
		Experience: d.Experience,
		About:      d.About,
		Fees:       d.Fees,
		Address:    d.Address,
	}
}

func (s DoctorSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *DoctorSnapshot) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// AddDoctorRequest is the multipart form an administrator submits.
type AddDoctorRequest struct {
	Name       string  `form:"name" binding:"required"`
	Email      string  `form:"email" binding:"required,email"`
	Password   string  `form:"password" binding:"required,min=8"`
	Speciality string  `form:"speciality" binding:"required"`
	Degree     string  `form:"degree" binding:"required"`
	Experience string  `form:"experience" binding:"required"`
	About      string  `form:"about" binding:"required"`
	Fees       float64 `form:"fees" binding:"required,gt=0"`
	Address    string  `form:"address" binding:"required,json"`
}

type ChangeAvailabilityRequest struct {
	DocID string `json:"docId" binding:"required,uuid"`
}
