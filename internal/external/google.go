package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// Scopes requested during authorization: event management on the user's
// calendar plus send-only mail access.
var googleScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/gmail.send",
}

// primaryCalendarID is the calendar all mirrored events land on.
const primaryCalendarID = "primary"

// eventDuration is the fixed block reserved for a check-in.
const eventDuration = time.Hour

// GoogleConfig configures the GoogleClient. URL fields default to the real
// Google endpoints and exist as overrides for tests.
type GoogleConfig struct {
	ClientID     string
	ClientSecret types.SecretString
	RedirectURL  string
	Timezone     string
	CallTimeout  time.Duration
	Logger       *slog.Logger

	AuthBaseURL     string
	TokenURL        string
	CalendarBaseURL string
	GmailBaseURL    string
}

// GoogleClient talks to the Google Calendar and Gmail REST APIs. It
// implements CalendarClient, MailClient, TokenClient and AuthorizationFlow.
// Every method bounds its work with the configured call timeout; a timed-out
// call is an ordinary per-item failure for the caller.
type GoogleClient struct {
	base        *BaseClient
	cfg         GoogleConfig
	logger      *slog.Logger
	callTimeout time.Duration
}

// NewGoogleClient creates a GoogleClient over the given HTTP client.
func NewGoogleClient(httpClient *http.Client, cfg GoogleConfig, opts ...BaseClientOption) *GoogleClient {
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = "https://accounts.google.com/o/oauth2/v2/auth"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.CalendarBaseURL == "" {
		cfg.CalendarBaseURL = "https://www.googleapis.com/calendar/v3"
	}
	if cfg.GmailBaseURL == "" {
		cfg.GmailBaseURL = "https://gmail.googleapis.com/gmail/v1"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}

	return &GoogleClient{
		base:        NewBaseClient(httpClient, "google-api", DefaultRetryPolicy(), opts...),
		cfg:         cfg,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

// ---------------------------------------------------------------------------
// Calendar
// ---------------------------------------------------------------------------

type eventDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventAttendee struct {
	Email string `json:"email"`
}

type eventReminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type eventReminders struct {
	UseDefault bool                    `json:"useDefault"`
	Overrides  []eventReminderOverride `json:"overrides,omitempty"`
}

type calendarEvent struct {
	Summary     string          `json:"summary"`
	Description string          `json:"description,omitempty"`
	Start       eventDateTime   `json:"start"`
	End         eventDateTime   `json:"end"`
	Location    string          `json:"location,omitempty"`
	Attendees   []eventAttendee `json:"attendees,omitempty"`
	Reminders   *eventReminders `json:"reminders,omitempty"`
}

type calendarEventResponse struct {
	ID string `json:"id"`
}

// CreateEvent implements CalendarClient. The created event blocks one hour
// starting at the appointment's scheduled time, invites the client's primary
// contact, and carries mail reminders at 24h and 1h plus a 15m popup.
func (g *GoogleClient) CreateEvent(ctx context.Context, cred *types.Credential, appt *types.Appointment, client *types.Client) (string, string, error) {
	payload := g.buildEventPayload(appt, client, true)

	endpoint := fmt.Sprintf("%s/calendars/%s/events", g.cfg.CalendarBaseURL, primaryCalendarID)
	resp, err := g.doJSON(ctx, http.MethodPost, endpoint, cred.AccessToken, payload)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", g.calendarError("creating event", resp)
	}

	var out calendarEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", types.NewAppError(types.ErrCodeUpstreamCalendar, "decoding event response", err)
	}
	if out.ID == "" {
		return "", "", types.NewAppError(types.ErrCodeUpstreamCalendar, "provider returned empty event id", nil)
	}

	g.logger.InfoContext(ctx, "calendar event created",
		"appointment_id", appt.ID,
		"event_id", out.ID,
	)
	return out.ID, primaryCalendarID, nil
}

// UpdateEvent implements CalendarClient via PATCH semantics: only the fields
// we own are rewritten, anything the user added on the provider side stays.
func (g *GoogleClient) UpdateEvent(ctx context.Context, cred *types.Credential, eventID string, appt *types.Appointment, client *types.Client) error {
	payload := g.buildEventPayload(appt, client, false)

	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s", g.cfg.CalendarBaseURL, primaryCalendarID, url.PathEscape(eventID))
	resp, err := g.doJSON(ctx, http.MethodPatch, endpoint, cred.AccessToken, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return g.calendarError("updating event "+eventID, resp)
	}

	g.logger.InfoContext(ctx, "calendar event updated", "event_id", eventID)
	return nil
}

// CancelEvent implements CalendarClient. A 404/410 means the event is
// already gone on the provider side and counts as success.
func (g *GoogleClient) CancelEvent(ctx context.Context, cred *types.Credential, eventID string) error {
	endpoint := fmt.Sprintf("%s/calendars/%s/events/%s", g.cfg.CalendarBaseURL, primaryCalendarID, url.PathEscape(eventID))
	resp, err := g.doJSON(ctx, http.MethodDelete, endpoint, cred.AccessToken, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound, http.StatusGone:
		g.logger.InfoContext(ctx, "calendar event canceled", "event_id", eventID)
		return nil
	}
	return g.calendarError("canceling event "+eventID, resp)
}

// buildEventPayload assembles the provider event body from domain data.
// withExtras adds attendees and reminder overrides, which are set on create
// and left alone on update.
func (g *GoogleClient) buildEventPayload(appt *types.Appointment, client *types.Client, withExtras bool) calendarEvent {
	start := appt.ScheduledAt
	end := start.Add(eventDuration)

	ev := calendarEvent{
		Summary:     appt.Title,
		Description: eventDescription(appt, client),
		Start:       eventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: g.cfg.Timezone},
		End:         eventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: g.cfg.Timezone},
		Location:    appt.Location,
	}

	if withExtras {
		if email := client.PrimaryEmail(); email != "" {
			ev.Attendees = []eventAttendee{{Email: email}}
		}
		ev.Reminders = &eventReminders{
			UseDefault: false,
			Overrides: []eventReminderOverride{
				{Method: "email", Minutes: 24 * 60},
				{Method: "email", Minutes: 60},
				{Method: "popup", Minutes: 15},
			},
		}
	}
	return ev
}

// eventDescription renders the event body text shown in the calendar entry.
func eventDescription(appt *types.Appointment, client *types.Client) string {
	var b strings.Builder
	if appt.Description != "" {
		b.WriteString(appt.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Cliente: %s\n", client.Name)
	fmt.Fprintf(&b, "Tipo: %s\n", appt.Kind)
	loc := appt.Location
	if loc == "" {
		loc = "A definir"
	}
	fmt.Fprintf(&b, "Local: %s", loc)
	if appt.Notes != "" {
		fmt.Fprintf(&b, "\n\nObservações: %s", appt.Notes)
	}
	return b.String()
}

// calendarError drains the response body into an upstream calendar error.
func (g *GoogleClient) calendarError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return types.NewAppError(types.ErrCodeUpstreamCalendar,
		fmt.Sprintf("%s: provider returned %d", op, resp.StatusCode),
		fmt.Errorf("%s", strings.TrimSpace(string(body))))
}

// ---------------------------------------------------------------------------
// Mail
// ---------------------------------------------------------------------------

type gmailSendRequest struct {
	Raw string `json:"raw"`
}

// SendNotification implements MailClient. The message is sent from the
// credential owner's own account via the Gmail API.
func (g *GoogleClient) SendNotification(ctx context.Context, cred *types.Credential, recipient, subject, htmlBody string) error {
	raw := buildRawMessage(recipient, subject, htmlBody)

	endpoint := g.cfg.GmailBaseURL + "/users/me/messages/send"
	resp, err := g.doJSON(ctx, http.MethodPost, endpoint, cred.AccessToken, gmailSendRequest{Raw: raw})
	if err != nil {
		// BaseClient failures come back as generic upstream errors; narrow
		// them to the mail code so jobs can classify the failure.
		return types.NewAppError(types.ErrCodeUpstreamMail, "sending notification mail", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return types.NewAppError(types.ErrCodeUpstreamMail,
			fmt.Sprintf("provider returned %d sending mail", resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	g.logger.InfoContext(ctx, "notification mail sent", "recipient", recipient)
	return nil
}

// buildRawMessage assembles an RFC 2822 text/html message and encodes it the
// way the Gmail API expects (URL-safe base64, no padding requirements).
func buildRawMessage(to, subject, htmlBody string) string {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	return base64.URLEncoding.EncodeToString(msg.Bytes())
}

// ---------------------------------------------------------------------------
// Tokens & authorization
// ---------------------------------------------------------------------------

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// RefreshCredential implements TokenClient. A 4xx from the token endpoint
// means the refresh secret is invalid or revoked; the user must re-authorize.
func (g *GoogleClient) RefreshCredential(ctx context.Context, refreshToken types.SecretString) (types.SecretString, time.Time, error) {
	form := url.Values{}
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret.Unmask())
	form.Set("refresh_token", refreshToken.Unmask())
	form.Set("grant_type", "refresh_token")

	tok, err := g.postTokenForm(ctx, form, types.ErrCodeRefreshFailed)
	if err != nil {
		return "", time.Time{}, err
	}

	expiry := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return types.SecretString(tok.AccessToken), expiry, nil
}

// BeginAuthorization implements AuthorizationFlow. access_type=offline asks
// for a refresh token; the user id rides in the state parameter.
func (g *GoogleClient) BeginAuthorization(userID string) string {
	params := url.Values{}
	params.Set("client_id", g.cfg.ClientID)
	params.Set("redirect_uri", g.cfg.RedirectURL)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(googleScopes, " "))
	params.Set("access_type", "offline")
	params.Set("include_granted_scopes", "true")
	params.Set("state", userID)
	return g.cfg.AuthBaseURL + "?" + params.Encode()
}

// CompleteAuthorization implements AuthorizationFlow.
func (g *GoogleClient) CompleteAuthorization(ctx context.Context, code, userID string) (*types.Credential, error) {
	form := url.Values{}
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret.Unmask())
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", g.cfg.RedirectURL)

	tok, err := g.postTokenForm(ctx, form, types.ErrCodeAuthCodeExchange)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		return nil, types.NewAppError(types.ErrCodeAuthCodeExchange,
			"provider returned no refresh token; consent may need to be re-granted", nil)
	}

	scopes := googleScopes
	if tok.Scope != "" {
		scopes = strings.Fields(tok.Scope)
	}

	return &types.Credential{
		UserID:       userID,
		AccessToken:  types.SecretString(tok.AccessToken),
		RefreshToken: types.SecretString(tok.RefreshToken),
		Expiry:       time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		Scopes:       scopes,
	}, nil
}

// postTokenForm posts an x-www-form-urlencoded body to the token endpoint.
// 4xx responses map onto failCode (refresh vs. code exchange); transport and
// 5xx failures keep their upstream classification.
func (g *GoogleClient) postTokenForm(ctx context.Context, form url.Values, failCode types.ErrorCode) (*tokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, types.NewAppError(failCode,
			fmt.Sprintf("token endpoint returned %d", resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "decoding token response", err)
	}
	if tok.AccessToken == "" {
		return nil, types.NewAppError(failCode, "token endpoint returned empty access token", nil)
	}
	return &tok, nil
}

// doJSON issues an authorized JSON request through the BaseClient. The
// response body is fully buffered so the call timeout can be released before
// the caller decodes it.
func (g *GoogleClient) doJSON(ctx context.Context, method, endpoint string, accessToken types.SecretString, payload any) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "encoding request payload", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building provider request", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken.Unmask())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.base.Do(req)
	if err != nil {
		return nil, err
	}

	buffered, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if readErr != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable, "reading provider response", readErr)
	}
	resp.Body = io.NopCloser(bytes.NewReader(buffered))
	return resp, nil
}
