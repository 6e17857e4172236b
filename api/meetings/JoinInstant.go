package meetings

import (
	"backend/database"
	"backend/server/util"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

type JoinInstantRequest struct {
	MeetingUrl string `json:"meeting_url"`
	Platform   string `json:"platform"`
}

type JoinInstantResponse struct {
	Success   bool   `json:"success"`
	MeetingId string `json:"meeting_id"`
	BotId     string `json:"bot_id,omitempty"`
	Message   string `json:"message"`
}

// JoinInstant creates an ad-hoc meeting record and sends the notetaker bot in
// right away, outside the periodic dispatch window.
func (h *MeetingsHandler) JoinInstant(w http.ResponseWriter, r *http.Request) {
	DB, user, err := util.GetDBAndUser(r)
	if err != nil {
		http.Error(w, "Unable to get database or user", http.StatusInternalServerError)
		return
	}

	var data JoinInstantRequest
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if data.MeetingUrl == "" || data.Platform == "" {
		http.Error(w, "Meeting URL and platform are required", http.StatusBadRequest)
		return
	}

	if !isKnownMeetingUrl(data.MeetingUrl) {
		http.Error(w, "Invalid meeting URL format", http.StatusBadRequest)
		return
	}

	now := time.Now()
	title := "Instant Zoom Meeting"
	if data.Platform == "google-meet" {
		title = "Instant Google Meet Meeting"
	}
	description := fmt.Sprintf("Instant meeting joined at %s", now.Format(time.RFC1123))
	attendees := fmt.Sprintf("[%q]", user.Email)

	meeting := database.Meeting{
		UserId:         user.ID,
		User:           *user,
		Title:          title,
		Description:    &description,
		MeetingUrl:     &data.MeetingUrl,
		StartTime:      now,
		EndTime:        now.Add(time.Hour),
		Attendees:      &attendees,
		IsFromCalendar: false,
		BotScheduled:   true,
	}

	if err := DB.Create(&meeting).Error; err != nil {
		http.Error(w, "Failed to create meeting", http.StatusInternalServerError)
		return
	}

	botId, err := h.Engine.DispatchMeeting(r.Context(), &meeting)
	if err != nil {
		log.Printf("Instant bot dispatch failed for meeting %s: %v", meeting.UUID, err)
		if derr := database.SetBotScheduled(DB, meeting.ID, false); derr != nil {
			log.Printf("Failed to clear bot intent for meeting %s: %v", meeting.UUID, derr)
		}
		http.Error(w, "Failed to schedule bot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(JoinInstantResponse{
		Success:   true,
		MeetingId: meeting.UUID,
		BotId:     botId,
		Message:   "Bot is joining your meeting!",
	})
}

func isKnownMeetingUrl(url string) bool {
	return strings.Contains(url, "meet.google.com") ||
		strings.Contains(url, "zoom.us") ||
		strings.Contains(url, "teams.microsoft.com")
}
