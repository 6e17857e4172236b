package calsync

import (
	"backend/bots"
	"backend/database"
	"context"
	"fmt"
	"log"
)

// DispatchDueMeetings sends a notetaker bot into every meeting starting within
// the lookahead window that wants one and has not been served yet. A failed
// dispatch leaves bot_sent untouched, so the meeting is retried on the next
// tick; one meeting's failure never blocks the others.
func (e *Engine) DispatchDueMeetings(ctx context.Context) error {
	now := e.Clock.Now()
	meetings, err := database.DueMeetings(e.DB, now, now.Add(dispatchLookahead))
	if err != nil {
		return fmt.Errorf("failed to query due meetings: %w", err)
	}
	log.Printf("%d meeting(s) due for bot dispatch", len(meetings))

	for i := range meetings {
		meeting := &meetings[i]
		if _, err := e.DispatchMeeting(ctx, meeting); err != nil {
			log.Printf("Bot dispatch failed for meeting %q (%s): %v", meeting.Title, meeting.UUID, err)
		}
	}
	return nil
}

// DispatchMeeting issues one join request and records the outcome. The
// conditional bot_sent update is the at-most-once guard, see database.MarkBotSent.
func (e *Engine) DispatchMeeting(ctx context.Context, meeting *database.Meeting) (string, error) {
	if meeting.MeetingUrl == nil || *meeting.MeetingUrl == "" {
		return "", fmt.Errorf("meeting has no url")
	}

	botId, err := e.Bots.Join(ctx, bots.JoinRequest{
		MeetingUrl: *meeting.MeetingUrl,
		BotName:    meeting.User.BotName,
		BotImage:   meeting.User.BotImageUrl,
		MeetingId:  meeting.UUID,
		UserId:     meeting.User.UUID,
	})
	if err != nil {
		return "", err
	}

	won, err := database.MarkBotSent(e.DB, meeting.ID, botId, e.Clock.Now())
	if err != nil {
		return "", err
	}
	if !won {
		log.Printf("Meeting %s was already served by another dispatcher, bot %s is redundant", meeting.UUID, botId)
		return botId, nil
	}

	log.Printf("Bot %s dispatched to meeting %q", botId, meeting.Title)
	return botId, nil
}
