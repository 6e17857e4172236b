package meetings

import (
	"backend/database"
	"backend/server/util"
	"encoding/json"
	"net/http"
)

// List the user's meetings ordered by start time
func (h *MeetingsHandler) List(w http.ResponseWriter, r *http.Request) {
	DB, user, err := util.GetDBAndUser(r)
	if err != nil {
		http.Error(w, "Unable to get database or user", http.StatusInternalServerError)
		return
	}

	meetings, err := database.ListMeetings(DB, user.ID)
	if err != nil {
		http.Error(w, "Unable to list meetings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meetings)
}
