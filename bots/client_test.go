package bots

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type capturedJoin struct {
	header http.Header
	path   string
	body   map[string]interface{}
}

func newJoinServer(t *testing.T, status int, response string) (*httptest.Server, *capturedJoin) {
	t.Helper()
	captured := &capturedJoin{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.header = r.Header.Clone()
		captured.path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Errorf("failed to decode join body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestJoinSendsProviderPayload(t *testing.T) {
	srv, captured := newJoinServer(t, http.StatusOK, `{"bot_id": "bot-123"}`)

	c := NewClient("secret-key", "https://hooks.example.com/bots")
	c.BaseURL = srv.URL

	botId, err := c.Join(context.Background(), JoinRequest{
		MeetingUrl: "https://meet.google.com/abc-defg-hij",
		BotName:    "Team Notetaker",
		BotImage:   "https://cdn.example.com/bot.png",
		MeetingId:  "meeting-uuid",
		UserId:     "user-uuid",
	})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if botId != "bot-123" {
		t.Errorf("unexpected bot id %q", botId)
	}

	if captured.path != "/bots" {
		t.Errorf("unexpected path %q", captured.path)
	}
	if got := captured.header.Get("x-meeting-baas-api-key"); got != "secret-key" {
		t.Errorf("missing api key header, got %q", got)
	}
	if got := captured.header.Get("Content-Type"); got != "application/json" {
		t.Errorf("unexpected content type %q", got)
	}

	body := captured.body
	if body["meeting_url"] != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("unexpected meeting_url: %v", body["meeting_url"])
	}
	if body["bot_name"] != "Team Notetaker" {
		t.Errorf("unexpected bot_name: %v", body["bot_name"])
	}
	if body["bot_image"] != "https://cdn.example.com/bot.png" {
		t.Errorf("unexpected bot_image: %v", body["bot_image"])
	}
	if body["reserved"] != false {
		t.Errorf("reserved must be false: %v", body["reserved"])
	}
	if body["recording_mode"] != "speaker_view" {
		t.Errorf("unexpected recording_mode: %v", body["recording_mode"])
	}
	if body["webhook_url"] != "https://hooks.example.com/bots" {
		t.Errorf("unexpected webhook_url: %v", body["webhook_url"])
	}
	stt, ok := body["speech_to_text"].(map[string]interface{})
	if !ok || stt["provider"] != "Default" {
		t.Errorf("unexpected speech_to_text: %v", body["speech_to_text"])
	}
	leave, ok := body["automatic_leave"].(map[string]interface{})
	if !ok || leave["waiting_room_timeout"] != float64(600) {
		t.Errorf("unexpected automatic_leave: %v", body["automatic_leave"])
	}
	extra, ok := body["extra"].(map[string]interface{})
	if !ok || extra["meeting_id"] != "meeting-uuid" || extra["user_id"] != "user-uuid" {
		t.Errorf("unexpected extra: %v", body["extra"])
	}
}

func TestJoinDefaultsBotName(t *testing.T) {
	srv, captured := newJoinServer(t, http.StatusOK, `{"bot_id": "bot-123"}`)

	c := NewClient("secret-key", "")
	c.BaseURL = srv.URL

	if _, err := c.Join(context.Background(), JoinRequest{MeetingUrl: "https://meet.google.com/abc"}); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if captured.body["bot_name"] != DefaultBotName {
		t.Errorf("expected default bot name, got %v", captured.body["bot_name"])
	}
}

func TestJoinProviderError(t *testing.T) {
	srv, _ := newJoinServer(t, http.StatusPaymentRequired, `{"error": "out of credits"}`)

	c := NewClient("secret-key", "")
	c.BaseURL = srv.URL

	if _, err := c.Join(context.Background(), JoinRequest{MeetingUrl: "https://meet.google.com/abc"}); err == nil {
		t.Fatal("expected error on non-2xx provider response")
	}
}

func TestJoinMissingBotId(t *testing.T) {
	srv, _ := newJoinServer(t, http.StatusOK, `{}`)

	c := NewClient("secret-key", "")
	c.BaseURL = srv.URL

	if _, err := c.Join(context.Background(), JoinRequest{MeetingUrl: "https://meet.google.com/abc"}); err == nil {
		t.Fatal("expected error when response lacks bot_id")
	}
}
