package meetings

import (
	"backend/database"
	"backend/server/util"
	"encoding/json"
	"fmt"
	"net/http"
)

type BotToggleRequest struct {
	BotScheduled bool `json:"bot_scheduled"`
}

type BotToggleResponse struct {
	Success      bool   `json:"success"`
	BotScheduled bool   `json:"bot_scheduled"`
	Message      string `json:"message"`
}

// BotToggle sets the bot scheduling intent for an owned meeting. Once the bot
// was sent the intent is frozen and the toggle is rejected.
func (h *MeetingsHandler) BotToggle(w http.ResponseWriter, r *http.Request) {
	DB, user, err := util.GetDBAndUser(r)
	if err != nil {
		http.Error(w, "Unable to get database or user", http.StatusInternalServerError)
		return
	}

	var data BotToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	meeting, err := database.MeetingByUUID(DB, user.ID, r.PathValue("meeting_uuid"))
	if err != nil {
		http.Error(w, "Meeting not found", http.StatusNotFound)
		return
	}

	if meeting.BotSent {
		http.Error(w, "Bot already sent for this meeting", http.StatusConflict)
		return
	}

	if err := database.SetBotScheduled(DB, meeting.ID, data.BotScheduled); err != nil {
		http.Error(w, "Failed to update bot status", http.StatusInternalServerError)
		return
	}

	verb := "disabled"
	if data.BotScheduled {
		verb = "enabled"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BotToggleResponse{
		Success:      true,
		BotScheduled: data.BotScheduled,
		Message:      fmt.Sprintf("Bot %s for meeting", verb),
	})
}
