package server

import (
	"backend/api/meetings"
	"backend/calsync"
	"fmt"
	"gorm.io/gorm"
	"net/http"
)

func BackendRouting(
	db *gorm.DB,
	engine *calsync.Engine,
) *http.ServeMux {
	mux := http.NewServeMux()
	v1PrivateApis := http.NewServeMux()

	meetingsHandler := &meetings.MeetingsHandler{Engine: engine}

	v1PrivateApis.HandleFunc("GET /meetings/list", meetingsHandler.List)
	v1PrivateApis.HandleFunc("POST /meetings/{meeting_uuid}/bot-toggle", meetingsHandler.BotToggle)
	v1PrivateApis.HandleFunc("POST /meetings/join-instant", meetingsHandler.JoinInstant)

	mux.HandleFunc("GET /_health", func(w http.ResponseWriter, r *http.Request) {
		if ServerStatus != "running" {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(fmt.Sprintf("Server is not running, status: %s", ServerStatus)))
		} else {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Server is running"))
		}
	})
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", Logging(AuthMiddleware(db)(v1PrivateApis))))

	return mux
}
