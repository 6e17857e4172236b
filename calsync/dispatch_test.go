package calsync

import (
	"backend/database"
	"context"
	"testing"
	"time"

	"gorm.io/gorm"
)

func seedDispatchMeeting(t *testing.T, db *gorm.DB, userId uint, title string, start time.Time) *database.Meeting {
	t.Helper()
	url := "https://meet.google.com/" + title
	meeting := database.Meeting{
		UserId:       userId,
		Title:        title,
		MeetingUrl:   &url,
		StartTime:    start,
		EndTime:      start.Add(30 * time.Minute),
		BotScheduled: true,
	}
	if err := db.Create(&meeting).Error; err != nil {
		t.Fatalf("failed to seed meeting: %v", err)
	}
	return &meeting
}

func TestDispatchWindowSelection(t *testing.T) {
	db := setupTestDB(t)
	clock := NewFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	user := createTestUser(t, db, "dispatch1@example.com")

	due := seedDispatchMeeting(t, db, user.ID, "due", clock.Now().Add(4*time.Minute))
	late := seedDispatchMeeting(t, db, user.ID, "late", clock.Now().Add(10*time.Minute))

	botSrv := newFakeBots(t)
	engine := newTestEngine(t, db, newFakeCalendar(t), botSrv, clock)

	if err := engine.DispatchDueMeetings(context.Background()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	var dispatched database.Meeting
	db.First(&dispatched, due.ID)
	if !dispatched.BotSent {
		t.Error("meeting starting in 4 minutes must be dispatched with a 5 minute lookahead")
	}
	var untouched database.Meeting
	db.First(&untouched, late.ID)
	if untouched.BotSent {
		t.Error("meeting starting in 10 minutes must not be dispatched yet")
	}
	if len(botSrv.requests) != 1 {
		t.Errorf("expected one provider call, got %d", len(botSrv.requests))
	}
}

func TestDispatchAtMostOnce(t *testing.T) {
	db := setupTestDB(t)
	clock := NewFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	user := createTestUser(t, db, "dispatch2@example.com")
	seedDispatchMeeting(t, db, user.ID, "once", clock.Now().Add(2*time.Minute))

	botSrv := newFakeBots(t)
	engine := newTestEngine(t, db, newFakeCalendar(t), botSrv, clock)

	for i := 0; i < 5; i++ {
		if err := engine.DispatchDueMeetings(context.Background()); err != nil {
			t.Fatalf("dispatch pass %d failed: %v", i+1, err)
		}
	}

	if len(botSrv.requests) != 1 {
		t.Errorf("expected exactly one provider call over repeated passes, got %d", len(botSrv.requests))
	}
}

func TestDispatchFailureKeepsMeetingEligible(t *testing.T) {
	db := setupTestDB(t)
	clock := NewFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	user := createTestUser(t, db, "dispatch3@example.com")
	meeting := seedDispatchMeeting(t, db, user.ID, "flaky", clock.Now().Add(2*time.Minute))

	botSrv := newFakeBots(t)
	botSrv.fail = true
	engine := newTestEngine(t, db, newFakeCalendar(t), botSrv, clock)

	if err := engine.DispatchDueMeetings(context.Background()); err != nil {
		t.Fatalf("dispatch pass must not fail as a whole: %v", err)
	}

	var stored database.Meeting
	db.First(&stored, meeting.ID)
	if stored.BotSent {
		t.Error("failed dispatch must leave bot_sent = false")
	}

	// the provider recovers, the next tick picks the meeting up again
	botSrv.fail = false
	if err := engine.DispatchDueMeetings(context.Background()); err != nil {
		t.Fatalf("retry pass failed: %v", err)
	}
	db.First(&stored, meeting.ID)
	if !stored.BotSent {
		t.Error("meeting must be dispatched once the provider recovers")
	}
}

func TestDispatchSkipsUnscheduledMeetings(t *testing.T) {
	db := setupTestDB(t)
	clock := NewFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	user := createTestUser(t, db, "dispatch4@example.com")
	meeting := seedDispatchMeeting(t, db, user.ID, "optout", clock.Now().Add(2*time.Minute))

	// the user toggled the bot off before dispatch
	if err := database.SetBotScheduled(db, meeting.ID, false); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	botSrv := newFakeBots(t)
	engine := newTestEngine(t, db, newFakeCalendar(t), botSrv, clock)

	if err := engine.DispatchDueMeetings(context.Background()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(botSrv.requests) != 0 {
		t.Errorf("expected no provider call for an opted-out meeting, got %d", len(botSrv.requests))
	}
}

func TestDispatchUsesUserBotIdentity(t *testing.T) {
	db := setupTestDB(t)
	clock := NewFakeClock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	user := createTestUser(t, db, "dispatch5@example.com")
	if err := db.Model(user).Updates(map[string]interface{}{
		"bot_name":      "Petra's Notetaker",
		"bot_image_url": "https://cdn.example.com/bot.png",
	}).Error; err != nil {
		t.Fatalf("failed to set bot identity: %v", err)
	}
	meeting := seedDispatchMeeting(t, db, user.ID, "branded", clock.Now().Add(2*time.Minute))

	botSrv := newFakeBots(t)
	engine := newTestEngine(t, db, newFakeCalendar(t), botSrv, clock)

	if err := engine.DispatchDueMeetings(context.Background()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if len(botSrv.requests) != 1 {
		t.Fatalf("expected one provider call, got %d", len(botSrv.requests))
	}

	req := botSrv.requests[0]
	if req["bot_name"] != "Petra's Notetaker" {
		t.Errorf("unexpected bot_name: %v", req["bot_name"])
	}
	if req["bot_image"] != "https://cdn.example.com/bot.png" {
		t.Errorf("unexpected bot_image: %v", req["bot_image"])
	}

	extra, ok := req["extra"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing correlation payload: %v", req["extra"])
	}
	var stored database.Meeting
	db.First(&stored, meeting.ID)
	if extra["meeting_id"] != stored.UUID {
		t.Errorf("correlation meeting_id = %v, want %v", extra["meeting_id"], stored.UUID)
	}
	if extra["user_id"] != user.UUID {
		t.Errorf("correlation user_id = %v, want %v", extra["user_id"], user.UUID)
	}
}
