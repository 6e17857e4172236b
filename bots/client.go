package bots

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.meetingbaas.com"

	DefaultBotName = "AI Notetaker"

	recordingMode = "speaker_view"
	entryMessage  = "Hi, I'm here to take notes and capture action items."
	// how long the bot waits in the lobby before giving up, in seconds
	waitingRoomTimeout = 600
)

// Client talks to the meeting bot provider.
type Client struct {
	BaseURL    string
	APIKey     string
	WebhookURL string
	hc         *http.Client
}

func NewClient(apiKey string, webhookURL string) *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		APIKey:     apiKey,
		WebhookURL: webhookURL,
		hc:         &http.Client{Timeout: 30 * time.Second},
	}
}

// JoinRequest describes one bot dispatch for one meeting. MeetingId and UserId
// are echoed back by the provider's webhook so callbacks can be correlated.
type JoinRequest struct {
	MeetingUrl string
	BotName    string
	BotImage   string
	MeetingId  string
	UserId     string
}

type joinPayload struct {
	MeetingUrl     string            `json:"meeting_url"`
	BotName        string            `json:"bot_name"`
	BotImage       string            `json:"bot_image,omitempty"`
	Reserved       bool              `json:"reserved"`
	RecordingMode  string            `json:"recording_mode"`
	EntryMessage   string            `json:"entry_message"`
	SpeechToText   speechToText      `json:"speech_to_text"`
	AutomaticLeave automaticLeave    `json:"automatic_leave"`
	WebhookUrl     string            `json:"webhook_url"`
	Extra          map[string]string `json:"extra"`
}

type speechToText struct {
	Provider string `json:"provider"`
}

type automaticLeave struct {
	WaitingRoomTimeout int `json:"waiting_room_timeout"`
}

type joinResponse struct {
	BotId string `json:"bot_id"`
}

// Join asks the provider to send a notetaker bot into the meeting and returns
// the provider's bot instance id.
func (c *Client) Join(ctx context.Context, req JoinRequest) (string, error) {
	botName := req.BotName
	if botName == "" {
		botName = DefaultBotName
	}

	payload := joinPayload{
		MeetingUrl:     req.MeetingUrl,
		BotName:        botName,
		BotImage:       req.BotImage,
		Reserved:       false,
		RecordingMode:  recordingMode,
		EntryMessage:   entryMessage,
		SpeechToText:   speechToText{Provider: "Default"},
		AutomaticLeave: automaticLeave{WaitingRoomTimeout: waitingRoomTimeout},
		WebhookUrl:     c.WebhookURL,
		Extra: map[string]string{
			"meeting_id": req.MeetingId,
			"user_id":    req.UserId,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal join request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/bots", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-meeting-baas-api-key", c.APIKey)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call bot provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bot provider returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result joinResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode bot provider response: %w", err)
	}
	if result.BotId == "" {
		return "", fmt.Errorf("bot provider response missing bot_id")
	}

	return result.BotId, nil
}
