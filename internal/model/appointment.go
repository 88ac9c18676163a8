package model

import (
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"userId" db:"user_id"`
	DocID       uuid.UUID       `json:"docId" db:"doc_id"`
	SlotDate    string          `json:"slotDate" db:"slot_date"`
	SlotTime    string          `json:"slotTime" db:"slot_time"`
	UserData    PatientSnapshot `json:"userData" db:"user_data"`
	DocData     DoctorSnapshot  `json:"docData" db:"doc_data"`
	Amount      float64         `json:"amount" db:"amount"`
	Date        time.Time       `json:"date" db:"date"`
	Cancelled   bool            `json:"cancelled" db:"cancelled"`
	Payment     bool            `json:"payment" db:"payment"`
	IsCompleted bool            `json:"isCompleted" db:"is_completed"`
}

// Claim returns the ledger claim this appointment owns.
func (a *Appointment) Claim() SlotClaim {
	return SlotClaim{
		DoctorID:      a.DocID,
		SlotDate:      a.SlotDate,
		SlotTime:      a.SlotTime,
		AppointmentID: a.ID,
	}
}

// SlotClaim is one (doctor, day-key, time-label) reservation and its owner.
type SlotClaim struct {
	DoctorID      uuid.UUID `db:"doctor_id"`
	SlotDate      string    `db:"slot_date"`
	SlotTime      string    `db:"slot_time"`
	AppointmentID uuid.UUID `db:"appointment_id"`
}

type BookAppointmentRequest struct {
	DocID    string `json:"docId" binding:"required,uuid"`
	SlotDate string `json:"slotDate" binding:"required,daykey"`
	SlotTime string `json:"slotTime" binding:"required,timelabel"`
}

type AppointmentIDRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
}

type VerifyPaymentRequest struct {
	OrderID string `json:"razorpay_order_id" binding:"required"`
}

// DashboardData is the admin overview.
type DashboardData struct {
	Doctors            int            `json:"doctors"`
	Appointments       int            `json:"appointments"`
	Patients           int            `json:"patients"`
	LatestAppointments []*Appointment `json:"latestAppointments"`
}
