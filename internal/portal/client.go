// Package portal talks to the remote booking portal: it authenticates,
// scrapes the per-session reservation context, and exposes the single action
// endpoint the worker drives REFRESH/ADD/DEL commands through.
package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const defaultUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

var (
	ErrAuthFailed     = errors.New("portal: credentials rejected")
	ErrTicketNotFound = errors.New("portal: ticket id not found in resource page")
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CredentialSource hands out the portal login pair. Implemented by the
// internal creds endpoint client; a failing source fails the whole connect.
type CredentialSource interface {
	Fetch(ctx context.Context) (Credentials, error)
}

// Dialer creates authenticated portal sessions. It holds no session state
// itself; every Connect starts from a fresh cookie jar so tokens are never
// reused across transports.
type Dialer struct {
	BaseURL   string
	Slug      string
	ArticleID string // fallback when the resource page doesn't declare one
	Creds     CredentialSource
	Timeout   time.Duration
}

func (d *Dialer) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return 10 * time.Second
}

// Connect performs the full login sequence: credential fetch, csrf preflight,
// form login, resource-page scrape. Any failure along the way collapses into
// an error; retry policy belongs to the caller.
func (d *Dialer) Connect(ctx context.Context) (*Session, error) {
	creds, err := d.Creds.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("portal: fetch credentials: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Jar: jar, Timeout: d.timeout()}

	loginURL := d.BaseURL + "/login/"
	if _, err := d.get(ctx, hc, loginURL, ""); err != nil {
		return nil, fmt.Errorf("portal: login preflight: %w", err)
	}
	csrf, err := cookieValue(jar, loginURL, "csrftoken")
	if err != nil {
		return nil, fmt.Errorf("portal: login preflight: %w", err)
	}

	resourcePath := "/en/reserv_single/" + d.Slug + "/"
	form := url.Values{
		"csrfmiddlewaretoken": {csrf},
		"username":            {creds.Email},
		"password":            {creds.Password},
		"next":                {resourcePath},
	}
	body, err := d.postForm(ctx, hc, loginURL, loginURL, form)
	if err != nil {
		return nil, fmt.Errorf("portal: login: %w", err)
	}
	if looksLikeLoginPage(body) {
		return nil, ErrAuthFailed
	}

	resourceURL := d.BaseURL + resourcePath
	page, err := d.get(ctx, hc, resourceURL, loginURL)
	if err != nil {
		return nil, fmt.Errorf("portal: resource page: %w", err)
	}

	ticketID, ok := extractTicketID(page)
	if !ok {
		return nil, ErrTicketNotFound
	}
	articleID := d.ArticleID
	if a, ok := extractArticleID(page); ok {
		articleID = a
	}

	// Login rotates the csrf cookie; the session must carry the
	// post-login value.
	csrf, err = cookieValue(jar, loginURL, "csrftoken")
	if err != nil {
		return nil, fmt.Errorf("portal: post-login token: %w", err)
	}

	return &Session{
		hc:        hc,
		csrf:      csrf,
		ticketID:  ticketID,
		articleID: articleID,
		actionURL: d.BaseURL + "/en/reserv_single/misc/" + d.Slug + "/",
		referer:   resourceURL,
		origin:    d.BaseURL,
	}, nil
}

func (d *Dialer) get(ctx context.Context, hc *http.Client, rawURL, referer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	browserHeaders(req.Header)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return doRead(hc, req)
}

func (d *Dialer) postForm(ctx context.Context, hc *http.Client, rawURL, referer string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	browserHeaders(req.Header)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", referer)
	return doRead(hc, req)
}

func doRead(hc *http.Client, req *http.Request) (string, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func browserHeaders(h http.Header) {
	h.Set("User-Agent", defaultUA)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
}

func cookieValue(jar http.CookieJar, rawURL, name string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == name {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("cookie %q not set", name)
}
