package models

import "time"

// Check-in methods.
const (
	CheckInMethodQR     = "QR"
	CheckInMethodManual = "MANUAL"
)

// Attendance is a single gym visit.
type Attendance struct {
	ID          int64      `json:"id" db:"id"`
	ClientID    int64      `json:"clientId" db:"client_id"`
	CheckIn     time.Time  `json:"checkIn" db:"check_in"`
	CheckInDay  time.Time  `json:"-" db:"check_in_day"`
	CheckOut    *time.Time `json:"checkOut" db:"check_out"`
	Method      string     `json:"method" db:"method"`
	ValidatedBy *int64     `json:"validatedBy,omitempty" db:"validated_by"`

	ClientName string `json:"clientName,omitempty"`
}

// AttendanceFilters selects a window of the attendance history. Date takes
// precedence over From/To.
type AttendanceFilters struct {
	Date  *time.Time
	From  *time.Time
	To    *time.Time
	Page  int
	Limit int
}

// CheckInResult is the outcome of a check-in attempt. Denials carry
// Success=false and a Message; they are not errors.
type CheckInResult struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	Client       *Client           `json:"client,omitempty"`
	Membership   *MembershipStatus `json:"membership,omitempty"`
	AttendanceID int64             `json:"attendanceId,omitempty"`
}

// MembershipStatus is the gate's view of a membership. DaysLeft is only
// set for the membership granting access now.
type MembershipStatus struct {
	Active    bool      `json:"active"`
	Plan      string    `json:"plan"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	DaysLeft  *int      `json:"daysLeft,omitempty"`
}

// ScannerClient is what the public scanner may learn about a card holder.
type ScannerClient struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	PhotoURL     *string `json:"photoUrl,omitempty"`
	QRCode       string  `json:"qrCode"`
	MedicalNotes *string `json:"medicalNotes,omitempty"`
}

// NewScannerClient narrows c to the fields shown at the door.
func NewScannerClient(c *Client) *ScannerClient {
	if c == nil {
		return nil
	}
	return &ScannerClient{ID: c.ID, Name: c.Name, PhotoURL: c.PhotoURL, QRCode: c.QRCode, MedicalNotes: c.MedicalNotes}
}

// ScanCheckIn describes what a scan with registerCheckIn did.
type ScanCheckIn struct {
	Registered       bool   `json:"registered"`
	AlreadyCheckedIn bool   `json:"alreadyCheckedIn,omitempty"`
	AttendanceID     int64  `json:"attendanceId,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// QRValidation is the read model returned by the scanner endpoint.
type QRValidation struct {
	Valid              bool              `json:"valid"`
	CanEnter           bool              `json:"canEnter"`
	Message            string            `json:"message,omitempty"`
	Client             *ScannerClient    `json:"client,omitempty"`
	Membership         *MembershipStatus `json:"membership,omitempty"`
	UpcomingMembership *MembershipStatus `json:"upcomingMembership,omitempty"`
	CheckIn            *ScanCheckIn      `json:"checkIn,omitempty"`
}

// AutoCheckOutResult reports an end-of-day sweep.
type AutoCheckOutResult struct {
	Closed  int64  `json:"closed"`
	Message string `json:"message"`
}

// AttendancePage is one page of the attendance history.
type AttendancePage struct {
	Data       []Attendance `json:"data"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
}

// ClientAttendanceStats summarises a client's visits.
type ClientAttendanceStats struct {
	TotalVisits        int          `json:"totalVisits"`
	MonthVisits        int          `json:"monthVisits"`
	WeekVisits         int          `json:"weekVisits"`
	AvgDurationMinutes int          `json:"avgDurationMinutes"`
	RecentVisits       []Attendance `json:"recentVisits"`
}
