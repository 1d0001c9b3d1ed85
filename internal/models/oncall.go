package models

import "time"

// ShiftTime enumerates the daily on-call windows.
type ShiftTime string

const (
	ShiftMorning   ShiftTime = "Sáng"
	ShiftAfternoon ShiftTime = "Chiều"
	ShiftEvening   ShiftTime = "Tối"
)

// Shifts lists the shifts in chronological order.
var Shifts = []ShiftTime{ShiftMorning, ShiftAfternoon, ShiftEvening}

// Valid reports whether s is a known shift.
func (s ShiftTime) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon || s == ShiftEvening
}

// Hours returns the wall-clock window of the shift.
func (s ShiftTime) Hours() string {
	switch s {
	case ShiftMorning:
		return "07:00 - 11:00"
	case ShiftAfternoon:
		return "13:00 - 17:00"
	case ShiftEvening:
		return "18:00 - 21:30"
	default:
		return ""
	}
}

// AttendanceStatus records presence on a shift.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Có mặt"
	AttendanceAbsent  AttendanceStatus = "Vắng"
	AttendanceLate    AttendanceStatus = "Trễ"
)

// OnCallSchedule is one student on one shift of one day.
type OnCallSchedule struct {
	ID          string           `json:"id"`
	StudentID   string           `json:"studentId"`
	Department  string           `json:"department"`
	Date        string           `json:"date"`
	Shift       ShiftTime        `json:"shift"`
	Status      AttendanceStatus `json:"status"`
	Note        string           `json:"note,omitempty"`
	CheckInTime *time.Time       `json:"checkInTime,omitempty"`
	Latitude    *float64         `json:"latitude,omitempty"`
	Longitude   *float64         `json:"longitude,omitempty"`
}

// CheckedIn reports whether a geolocated check-in was recorded.
func (s OnCallSchedule) CheckedIn() bool {
	return s.CheckInTime != nil
}

// OnCallFilter narrows on-call listings.
type OnCallFilter struct {
	Department string
	StudentID  string
	StartDate  string
	EndDate    string
}
