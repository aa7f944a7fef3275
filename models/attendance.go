package models

import "time"

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
)

// Attendee is a guest on the event's attendance list.
type Attendee struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	Name       string     `json:"name" gorm:"not null;index"`
	TicketName *string    `json:"ticket_name,omitempty"`
	Status     string     `json:"status" gorm:"type:varchar(16);not null;default:'absent'"`
	Remark     *string    `json:"remark,omitempty" gorm:"type:text"`
	ScannedAt  *time.Time `json:"date_scanned,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
