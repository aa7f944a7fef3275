package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"eventflow/models"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// AttendanceService keeps the guest list. Every change rebroadcasts the full
// list on the global topic.
type AttendanceService struct {
	DB  *gorm.DB
	Hub Broadcaster
}

func NewAttendanceService(db *gorm.DB, hub Broadcaster) *AttendanceService {
	return &AttendanceService{DB: db, Hub: hub}
}

func (s *AttendanceService) List(ctx context.Context) ([]models.Attendee, error) {
	var list []models.Attendee
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, storeErr(err, "list attendance")
	}
	return list, nil
}

func (s *AttendanceService) Add(ctx context.Context, name string, ticketName *string) (*models.Attendee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	a := &models.Attendee{
		ID:         uuid.NewString(),
		Name:       name,
		TicketName: blankToNil(ticketName),
		Status:     models.AttendanceAbsent,
	}
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, storeErr(err, "add attendee")
	}
	s.broadcast(ctx)
	return a, nil
}

// MarkPresent stamps the attendee as present with the scan time.
func (s *AttendanceService) MarkPresent(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Model(&models.Attendee{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     models.AttendancePresent,
		"scanned_at": time.Now(),
	})
	if res.Error != nil {
		return storeErr(res.Error, "mark attendance")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("attendee %s: %w", id, ErrNotFound)
	}
	log.Printf("✅ [ATTENDANCE] %s marked present", id)
	s.broadcast(ctx)
	return nil
}

// MarkPresentByName marks the first attendee whose name matches under
// Unicode case folding, the way guests type their own name on a phone.
func (s *AttendanceService) MarkPresentByName(ctx context.Context, name string) (*models.Attendee, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))
	for i := range list {
		if fold.String(strings.TrimSpace(list[i].Name)) == want {
			if err := s.MarkPresent(ctx, list[i].ID); err != nil {
				return nil, err
			}
			list[i].Status = models.AttendancePresent
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("attendee %q: %w", name, ErrNotFound)
}

// Reset marks everyone absent and clears scan times.
func (s *AttendanceService) Reset(ctx context.Context) error {
	err := s.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&models.Attendee{}).
		Updates(map[string]interface{}{"status": models.AttendanceAbsent, "scanned_at": nil}).Error
	if err != nil {
		return storeErr(err, "reset attendance")
	}
	s.broadcast(ctx)
	return nil
}

func (s *AttendanceService) Clear(ctx context.Context) error {
	err := s.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Attendee{}).Error
	if err != nil {
		return storeErr(err, "clear attendance")
	}
	s.broadcast(ctx)
	return nil
}

func (s *AttendanceService) UpdateRemark(ctx context.Context, id string, remark *string) error {
	return s.update(ctx, id, "remark", blankToNil(remark))
}

func (s *AttendanceService) UpdateTicketName(ctx context.Context, id string, ticketName *string) error {
	return s.update(ctx, id, "ticket_name", blankToNil(ticketName))
}

func (s *AttendanceService) update(ctx context.Context, id, column string, value *string) error {
	res := s.DB.WithContext(ctx).Model(&models.Attendee{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return storeErr(res.Error, "update "+column)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("attendee %s: %w", id, ErrNotFound)
	}
	s.broadcast(ctx)
	return nil
}

func (s *AttendanceService) broadcast(ctx context.Context) {
	list, err := s.List(ctx)
	if err != nil {
		log.Printf("❌ [ATTENDANCE] Broadcast skipped: %v", err)
		return
	}
	s.Hub.Publish(GlobalTopic, EventAttendance, list)
}

func blankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
