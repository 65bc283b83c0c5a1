package calendarexport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// PublishResult tallies what a publish pass did to the remote calendar.
type PublishResult struct {
	Created int
	Updated int
	Failed  int
}

// CalDAVPublisher pushes a solved schedule's shift entries onto a CalDAV
// calendar as ShiftForge-tagged events. A later publish of the same run
// updates its own events in place rather than duplicating them, since each
// event's UID is derived from the run ID, date, shift, and doctor.
type CalDAVPublisher struct {
	baseURL      string
	calendarPath string
	httpClient   webdav.HTTPClient
	logger       *slog.Logger
}

// NewBasicAuthPublisher builds a publisher authenticating with HTTP Basic
// Auth, the scheme most self-hosted CalDAV servers (Nextcloud, Radicale,
// Fastmail, iCloud app-specific passwords) expect.
func NewBasicAuthPublisher(baseURL, username, password string, logger *slog.Logger) *CalDAVPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &basicAuthTransport{
			username: username,
			password: password,
			base:     http.DefaultTransport,
		},
	}
	return &CalDAVPublisher{
		baseURL:    baseURL,
		httpClient: webdav.HTTPClientWithBasicAuth(httpClient, username, password),
		logger:     logger,
	}
}

// NewOAuthPublisher builds a publisher authenticating with a bearer token
// from ts, for CalDAV providers fronted by OAuth2 (e.g. Google Calendar's
// CalDAV bridge). oauth2.NewClient's transport attaches and refreshes the
// bearer token on every request, and *http.Client already satisfies
// webdav.HTTPClient, so no Basic-Auth wrapping is needed on this path.
func NewOAuthPublisher(ctx context.Context, baseURL string, ts oauth2.TokenSource, logger *slog.Logger) *CalDAVPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = 30 * time.Second
	return &CalDAVPublisher{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// WithCalendarPath pins the publisher to a specific calendar instead of the
// server's first discovered one.
func (p *CalDAVPublisher) WithCalendarPath(path string) *CalDAVPublisher {
	p.calendarPath = path
	return p
}

// PublishSchedule pushes every entry in the flattened schedule as one
// VEVENT per doctor/date/shift.
func (p *CalDAVPublisher) PublishSchedule(ctx context.Context, runID uuid.UUID, entries []ScheduleEntry) (*PublishResult, error) {
	client, err := caldav.NewClient(p.httpClient, p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}

	calPath, err := p.findCalendarPath(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("find calendar: %w", err)
	}

	result := &PublishResult{}
	for _, entry := range entries {
		event := shiftEvent(runID, entry)
		cal := ical.NewCalendar()
		cal.Props.SetText(ical.PropVersion, "2.0")
		cal.Props.SetText(ical.PropProductID, ProductID)
		cal.Children = append(cal.Children, event.Component)

		eventPath := fmt.Sprintf("%s%s.ics", calPath, event.Props.Get(ical.PropUID).Value)
		updated, err := p.upsertEvent(ctx, client, eventPath, cal)
		if err != nil {
			p.logger.Warn("caldav publish failed", "event_path", eventPath, "error", err)
			result.Failed++
			continue
		}
		if updated {
			result.Updated++
		} else {
			result.Created++
		}
	}

	return result, nil
}

func (p *CalDAVPublisher) findCalendarPath(ctx context.Context, client *caldav.Client) (string, error) {
	if p.calendarPath != "" {
		return p.calendarPath, nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find calendar home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", fmt.Errorf("no calendars found")
	}
	return cals[0].Path, nil
}

func (p *CalDAVPublisher) upsertEvent(ctx context.Context, client *caldav.Client, eventPath string, cal *ical.Calendar) (bool, error) {
	_, err := client.GetCalendarObject(ctx, eventPath)
	exists := err == nil

	if _, err := client.PutCalendarObject(ctx, eventPath, cal); err != nil {
		return false, err
	}
	return exists, nil
}

type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}
