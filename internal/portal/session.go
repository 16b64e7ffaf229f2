package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Command is the action-endpoint verb.
type Command string

const (
	CmdAdd     Command = "ADD"
	CmdDel     Command = "DEL"
	cmdRefresh Command = "REFRESH"
)

// Session is one authenticated login transaction: transport, anti-forgery
// token and reservation context belong together and are discarded together.
type Session struct {
	hc        *http.Client
	csrf      string
	ticketID  string
	articleID string
	actionURL string
	referer   string
	origin    string
}

func (s *Session) TicketID() string { return s.ticketID }

type actionResponse struct {
	Status   bool   `json:"status"`
	FullDays []int  `json:"full_days"`
	Msg      string `json:"msg"`
}

// post is the single primitive every remote action goes through. The shared
// parameters (article id, csrf token) are filled here.
func (s *Session) post(ctx context.Context, form url.Values) (*http.Response, error) {
	form.Set("article_id", s.articleID)
	form.Set("csrfmiddlewaretoken", s.csrf)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.actionURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	browserHeaders(req.Header)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", s.referer)
	req.Header.Set("Origin", s.origin)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	return s.hc.Do(req)
}

// Refresh asks the portal for the authoritative list of fully-booked days of
// the given month. A remote-reported failure or a bad response leaves the
// caller's cache alone; neither invalidates the session.
func (s *Session) Refresh(ctx context.Context, year int, month time.Month) ([]int, error) {
	form := url.Values{
		"cmd":   {string(cmdRefresh)},
		"month": {strconv.Itoa(int(month))},
		"year":  {strconv.Itoa(year)},
	}
	resp, err := s.post(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	defer resp.Body.Close()

	var ar actionResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("refresh: decode: %w", err)
	}
	if !ar.Status {
		return nil, fmt.Errorf("refresh refused: %s", ar.Msg)
	}
	return ar.FullDays, nil
}

// Submit issues exactly one ADD or DEL attempt for a date and classifies the
// raw response. Retry policy lives in the worker, not here.
func (s *Session) Submit(ctx context.Context, date, plate string, cmd Command) Outcome {
	form := url.Values{
		"cmd":       {string(cmd)},
		"date":      {date},
		"ticket_id": {s.ticketID},
		"car_id":    {plate},
	}
	resp, err := s.post(ctx, form)
	if err != nil {
		return Outcome{Kind: NetworkError, Message: "Network error: " + err.Error()}
	}
	defer resp.Body.Close()

	// A dead session gets an HTML login redirect back, not JSON. The
	// status code is 200 either way, so content type is the signal.
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return Outcome{Kind: SessionExpired}
	}

	var ar actionResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return Outcome{Kind: NetworkError, Message: "Network error: " + err.Error()}
	}
	if ar.Status {
		return Outcome{Kind: Success}
	}
	return Outcome{Kind: Refused, Message: ar.Msg}
}
