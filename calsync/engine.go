package calsync

import (
	"backend/bots"
	"backend/database"
	"backend/googlecalendar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
)

const (
	// an outbound calendar call must never run on a token with less margin left
	tokenRefreshMargin = 10 * time.Minute
	// how far ahead reconciliation mirrors the provider
	syncWindow = 7 * 24 * time.Hour
	// meetings starting inside this window get their bot dispatched; the tick
	// period must stay below it so no meeting falls between two ticks
	dispatchLookahead = 5 * time.Minute
)

// Engine keeps local meeting records consistent with the calendar provider and
// dispatches notetaker bots for meetings about to start.
type Engine struct {
	DB       *gorm.DB
	Calendar *googlecalendar.Client
	Bots     *bots.Client
	Tokens   *TokenManager
	Clock    Clock
}

func NewEngine(DB *gorm.DB, calendar *googlecalendar.Client, botClient *bots.Client, tokens *TokenManager) *Engine {
	return &Engine{
		DB:       DB,
		Calendar: calendar,
		Bots:     botClient,
		Tokens:   tokens,
		Clock:    realClock{},
	}
}

// Tick runs one full pass: reconcile every connected calendar, then dispatch
// due bots. Failures are contained per user and per meeting inside the
// sub-passes, so Tick itself only fails on store-level problems.
func (e *Engine) Tick(ctx context.Context) error {
	if err := e.SyncAllCalendars(ctx); err != nil {
		return err
	}
	return e.DispatchDueMeetings(ctx)
}

// SyncAllCalendars reconciles each connected user's calendar. One user's
// failure is logged and never blocks the remaining users.
func (e *Engine) SyncAllCalendars(ctx context.Context) error {
	creds, err := database.ConnectedCredentials(e.DB)
	if err != nil {
		return fmt.Errorf("failed to load connected credentials: %w", err)
	}
	log.Printf("Syncing calendars for %d user(s)", len(creds))

	for i := range creds {
		cred := &creds[i]
		if err := e.syncUserCalendar(ctx, cred); err != nil {
			log.Printf("Calendar sync failed for user %d: %v", cred.UserId, err)
		}
	}
	return nil
}

// syncUserCalendar makes the user's calendar-sourced meetings match the
// provider's events for [now, now+syncWindow). The upsert/delete pass over the
// response runs before the deletion-by-absence pass, which needs the full set
// of seen event ids.
func (e *Engine) syncUserCalendar(ctx context.Context, cred *database.CalendarCredential) error {
	accessToken, err := e.Tokens.EnsureFreshToken(ctx, cred)
	if err != nil {
		return err
	}

	now := e.Clock.Now()
	events, err := e.Calendar.ListUpcomingEvents(ctx, accessToken, now, now.Add(syncWindow))
	if errors.Is(err, googlecalendar.ErrUnauthorized) {
		log.Printf("Calendar rejected token for user %d, disconnecting", cred.UserId)
		if derr := database.DisconnectCalendar(e.DB, cred.UserId); derr != nil {
			return derr
		}
		return err
	}
	if err != nil {
		return err
	}

	existing, err := database.UpcomingCalendarMeetings(e.DB, cred.UserId, now)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, ev := range events {
		if ev.Cancelled {
			if err := database.DeleteMeetingByCalendarEventId(e.DB, ev.Id); err != nil {
				return err
			}
			continue
		}
		// the event is present either way; only create/update needs it joinable
		seen[ev.Id] = true
		if ev.MeetingUrl == "" || ev.Start.IsZero() {
			log.Printf("Skipping event %s for user %d, no meeting url or start time", ev.Id, cred.UserId)
			continue
		}
		if err := e.upsertMeeting(cred.UserId, ev); err != nil {
			return err
		}
	}

	// the provider is the source of truth: anything it stopped reporting is gone
	for _, meeting := range existing {
		if meeting.CalendarEventId == nil || seen[*meeting.CalendarEventId] {
			continue
		}
		log.Printf("Meeting %q (event %s) no longer on calendar, deleting", meeting.Title, *meeting.CalendarEventId)
		if err := database.DeleteMeeting(e.DB, meeting.ID); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) upsertMeeting(userId uint, ev googlecalendar.Event) error {
	title := ev.Title
	if title == "" {
		title = "Untitled Meeting"
	}

	var description *string
	if ev.Description != "" {
		description = &ev.Description
	}

	var attendees *string
	if len(ev.Attendees) > 0 {
		raw, err := json.Marshal(ev.Attendees)
		if err != nil {
			return fmt.Errorf("failed to serialize attendees: %w", err)
		}
		s := string(raw)
		attendees = &s
	}

	existing, err := database.MeetingByCalendarEventId(e.DB, ev.Id)
	if err != nil {
		return err
	}

	if existing == nil {
		meetingUrl := ev.MeetingUrl
		eventId := ev.Id
		meeting := database.Meeting{
			UserId:          userId,
			Title:           title,
			Description:     description,
			MeetingUrl:      &meetingUrl,
			StartTime:       ev.Start,
			EndTime:         ev.End,
			Attendees:       attendees,
			IsFromCalendar:  true,
			CalendarEventId: &eventId,
			BotScheduled:    true,
		}
		return e.DB.Create(&meeting).Error
	}

	updates := map[string]interface{}{
		"title":       title,
		"description": description,
		"meeting_url": ev.MeetingUrl,
		"start_time":  ev.Start,
		"end_time":    ev.End,
		"attendees":   attendees,
	}
	// once the bot went out, scheduling intent is frozen for this instance
	if !existing.BotSent {
		updates["bot_scheduled"] = true
	}

	return e.DB.Model(&database.Meeting{}).Where("id = ?", existing.ID).Updates(updates).Error
}
