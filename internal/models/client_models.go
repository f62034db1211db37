package models

import "time"

// Client represents a gym member.
type Client struct {
	ID               int64      `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Email            *string    `json:"email,omitempty" db:"email"`
	Phone            *string    `json:"phone,omitempty" db:"phone"`
	EmergencyContact *string    `json:"emergencyContact,omitempty" db:"emergency_contact"`
	BirthDate        *time.Time `json:"birthDate,omitempty" db:"birth_date"`
	MedicalNotes     *string    `json:"medicalNotes,omitempty" db:"medical_notes"`
	PhotoURL         *string    `json:"photoUrl,omitempty" db:"photo_url"`
	QRCode           string     `json:"qrCode" db:"qr_code"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`
}

// ClientSummary is a client row in the paged listing, annotated with its
// membership state.
type ClientSummary struct {
	Client
	ActiveMembership   *Membership `json:"activeMembership"`
	UpcomingMembership *Membership `json:"upcomingMembership"`
}

// ClientDetail is a single client with its membership history and latest visits.
type ClientDetail struct {
	Client
	Memberships []Membership `json:"memberships"`
	Attendances []Attendance `json:"attendances"`
}

// ClientCard is the payload printed on a member card or shown in the app.
type ClientCard struct {
	ClientID           int64       `json:"clientId"`
	Name               string      `json:"name"`
	QRCode             string      `json:"qrCode"`
	PhotoURL           *string     `json:"photoUrl,omitempty"`
	Membership         *Membership `json:"membership"`
	UpcomingMembership *Membership `json:"upcomingMembership"`
	IsValid            bool        `json:"isValid"`
	DaysLeft           int         `json:"daysLeft"`
}
