package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Meeting is the shared meeting record. Calendar-sourced rows are owned by the
// sync engine and mirror the provider; instant meetings are created through the
// API and never touched by reconciliation.
type Meeting struct {
	Model
	UserId      uint      `json:"user_id" gorm:"index"`
	User        User      `json:"-" gorm:"foreignKey:UserId;references:ID;constraint:OnUpdate:CASCADE,OnDelete:NO ACTION;"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	MeetingUrl  *string   `json:"meeting_url,omitempty"`
	StartTime   time.Time `json:"start_time" gorm:"index"`
	EndTime     time.Time `json:"end_time"`
	// JSON-serialized list of attendee emails, opaque to the engine
	Attendees *string `json:"attendees,omitempty"`

	IsFromCalendar  bool    `json:"is_from_calendar"`
	CalendarEventId *string `json:"calendar_event_id,omitempty" gorm:"uniqueIndex"`

	BotScheduled bool       `json:"bot_scheduled"`
	BotSent      bool       `json:"bot_sent" gorm:"index"`
	BotId        *string    `json:"bot_id,omitempty"`
	BotJoinedAt  *time.Time `json:"bot_joined_at,omitempty"`
}

func MeetingByCalendarEventId(DB *gorm.DB, eventId string) (*Meeting, error) {
	var meeting Meeting
	err := DB.First(&meeting, "calendar_event_id = ?", eventId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

func MeetingByUUID(DB *gorm.DB, userId uint, uuid string) (*Meeting, error) {
	var meeting Meeting
	if err := DB.First(&meeting, "uuid = ? AND user_id = ?", uuid, userId).Error; err != nil {
		return nil, err
	}
	return &meeting, nil
}

// UpcomingCalendarMeetings lists the user's calendar-sourced meetings that have
// not started yet. The sync engine diffs this set against the provider response.
func UpcomingCalendarMeetings(DB *gorm.DB, userId uint, now time.Time) ([]Meeting, error) {
	var meetings []Meeting
	err := DB.Where("user_id = ? AND is_from_calendar = ? AND start_time >= ?", userId, true, now).
		Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

func ListMeetings(DB *gorm.DB, userId uint) ([]Meeting, error) {
	var meetings []Meeting
	err := DB.Where("user_id = ?", userId).Order("start_time asc").Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

func DeleteMeetingByCalendarEventId(DB *gorm.DB, eventId string) error {
	return DB.Unscoped().Where("calendar_event_id = ?", eventId).Delete(&Meeting{}).Error
}

func DeleteMeeting(DB *gorm.DB, id uint) error {
	return DB.Unscoped().Delete(&Meeting{}, id).Error
}

// DueMeetings selects every meeting across all users that should have a bot
// dispatched now: intent set, not yet sent, joinable, and starting inside
// [now, until).
func DueMeetings(DB *gorm.DB, now time.Time, until time.Time) ([]Meeting, error) {
	var meetings []Meeting
	err := DB.Preload("User").
		Where("bot_scheduled = ? AND bot_sent = ?", true, false).
		Where("meeting_url IS NOT NULL AND meeting_url <> ?", "").
		Where("start_time >= ? AND start_time < ?", now, until).
		Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// MarkBotSent flips bot_sent exactly once. The WHERE clause on the old flag
// value is the idempotency guard: with two concurrent dispatchers only one
// update affects a row, the loser sees won == false and must not treat the
// meeting as its own dispatch.
func MarkBotSent(DB *gorm.DB, meetingId uint, botId string, at time.Time) (won bool, err error) {
	r := DB.Model(&Meeting{}).
		Where("id = ? AND bot_sent = ?", meetingId, false).
		Updates(map[string]interface{}{
			"bot_sent":      true,
			"bot_id":        botId,
			"bot_joined_at": at,
		})
	if r.Error != nil {
		return false, r.Error
	}
	return r.RowsAffected > 0, nil
}

func SetBotScheduled(DB *gorm.DB, meetingId uint, scheduled bool) error {
	return DB.Model(&Meeting{}).Where("id = ?", meetingId).Update("bot_scheduled", scheduled).Error
}
