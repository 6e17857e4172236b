package googlecalendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrUnauthorized signals an invalid or revoked access token. Callers mark the
// credential disconnected instead of retrying.
var ErrUnauthorized = errors.New("googlecalendar: unauthorized")

// Event is a provider event reduced to the fields the sync engine acts on.
// Cancelled events only carry an id.
type Event struct {
	Id          string
	Cancelled   bool
	Title       string
	Description string
	MeetingUrl  string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

type Client struct {
	endpoint string
	hc       *http.Client
}

func NewClient() *Client {
	return &Client{}
}

// NewClientWithEndpoint points the client at an alternative API base URL,
// used by tests to substitute a local fake.
func NewClientWithEndpoint(endpoint string, hc *http.Client) *Client {
	return &Client{endpoint: endpoint, hc: hc}
}

func (c *Client) service(ctx context.Context, accessToken string) (*gcal.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	var hc *http.Client
	if c.hc == nil {
		hc = oauth2.NewClient(ctx, ts)
	} else {
		// keep the bearer token on the wire even with an injected transport
		hc = &http.Client{Transport: &oauth2.Transport{Source: ts, Base: c.hc.Transport}}
	}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	return gcal.NewService(ctx, opts...)
}

// ListUpcomingEvents fetches the user's primary calendar for [from, to),
// expanded to single events and including cancelled ones, ordered by start time.
func (c *Client) ListUpcomingEvents(ctx context.Context, accessToken string, from time.Time, to time.Time) ([]Event, error) {
	srv, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar service: %w", err)
	}

	resp, err := srv.Events.List("primary").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		ShowDeleted(true).
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, convertEvent(item))
	}
	return events, nil
}

func convertEvent(item *gcal.Event) Event {
	if item.Status == "cancelled" {
		return Event{Id: item.Id, Cancelled: true}
	}

	ev := Event{
		Id:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		MeetingUrl:  meetingUrl(item),
	}

	// all-day events only have Date set, Start stays zero and the engine skips them
	if item.Start != nil && item.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
			ev.Start = t
		}
	}
	if item.End != nil && item.End.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
			ev.End = t
		}
	}

	for _, a := range item.Attendees {
		if a.Email != "" {
			ev.Attendees = append(ev.Attendees, a.Email)
		}
	}

	return ev
}

// meetingUrl extracts a joinable conference link, preferring the direct hangout
// link over the conference entry points.
func meetingUrl(item *gcal.Event) string {
	if item.HangoutLink != "" {
		return item.HangoutLink
	}
	if item.ConferenceData != nil {
		for _, ep := range item.ConferenceData.EntryPoints {
			if ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return ""
}
