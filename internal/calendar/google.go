package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"schedpoll/internal/domain"
	"schedpoll/pkg/logger"
)

// TokenProvider resolves a participant's stored OAuth token. Token storage
// and refresh live with the OAuth collaborator, not here.
type TokenProvider interface {
	TokenForParticipant(ctx context.Context, participantID string) (*oauth2.Token, error)
}

// GoogleClient implements BusyIntervalProvider and EventRegistrar against
// the Google Calendar API, one authenticated service per participant.
type GoogleClient struct {
	oauthConfig *oauth2.Config
	tokens      TokenProvider
	log         *logger.Logger
}

// NewGoogleClient creates a Google Calendar client for the given OAuth app
func NewGoogleClient(clientID, clientSecret string, tokens TokenProvider, log *logger.Logger) *GoogleClient {
	return &GoogleClient{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
		},
		tokens: tokens,
		log:    log,
	}
}

func (c *GoogleClient) serviceFor(ctx context.Context, participantID string) (*calendar.Service, error) {
	token, err := c.tokens.TokenForParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get token for participant %s: %w", participantID, err)
	}

	httpClient := oauth2.NewClient(ctx, c.oauthConfig.TokenSource(ctx, token))
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

// BusyIntervals queries the participant's primary calendar through the
// FreeBusy API and returns merged intervals, sorted and in UTC
func (c *GoogleClient) BusyIntervals(ctx context.Context, participantID string, windowStart, windowEnd time.Time) ([]domain.BusyInterval, error) {
	svc, err := c.serviceFor(ctx, participantID)
	if err != nil {
		return nil, err
	}

	query := &calendar.FreeBusyRequest{
		TimeMin: windowStart.UTC().Format(time.RFC3339),
		TimeMax: windowEnd.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: "primary"}},
	}

	result, err := svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	var intervals []domain.BusyInterval
	for _, cal := range result.Calendars {
		for _, reason := range cal.Errors {
			c.log.WithField("participant_id", participantID).
				WithField("reason", reason.Reason).
				Warn("freebusy returned a calendar error")
		}
		for _, busy := range cal.Busy {
			start, err := time.Parse(time.RFC3339, busy.Start)
			if err != nil {
				return nil, fmt.Errorf("failed to parse busy start %q: %w", busy.Start, err)
			}
			end, err := time.Parse(time.RFC3339, busy.End)
			if err != nil {
				return nil, fmt.Errorf("failed to parse busy end %q: %w", busy.End, err)
			}
			intervals = append(intervals, domain.BusyInterval{
				ParticipantID: participantID,
				Start:         start.UTC(),
				End:           end.UTC(),
			})
		}
	}

	return mergeIntervals(intervals), nil
}

// RegisterEvent inserts the winning slot on the participant's primary
// calendar and returns the event id
func (c *GoogleClient) RegisterEvent(ctx context.Context, participantID string, slot domain.CandidateSlot, meta domain.EventMetadata) (string, error) {
	svc, err := c.serviceFor(ctx, participantID)
	if err != nil {
		return "", err
	}

	event := &calendar.Event{
		Summary:     meta.Title,
		Location:    meta.Location,
		Description: meta.Description,
		Start: &calendar.EventDateTime{
			DateTime: slot.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: slot.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}

	created, err := svc.Events.Insert("primary", event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}

	c.log.WithField("participant_id", participantID).
		WithField("event_id", created.Id).
		Info("calendar event registered")
	return created.Id, nil
}

// mergeIntervals sorts and coalesces overlapping or touching ranges so the
// aggregator receives a well-formed sequence
func mergeIntervals(intervals []domain.BusyInterval) []domain.BusyInterval {
	if len(intervals) <= 1 {
		return intervals
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})

	merged := intervals[:1]
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
