package portal

import (
	"regexp"
	"strings"
)

// The resource page embeds the reservation context in inline script, e.g.
// `var ticket_id = "12345";`. There is no API for it; pattern matching on
// the markup is the contract.
var (
	ticketIDRe  = regexp.MustCompile(`ticket_id\s*[:=]\s*['"]?(\d+)`)
	articleIDRe = regexp.MustCompile(`article_id\s*[:=]\s*['"]?(\d+)`)
)

// extractTicketID pulls the numeric ticket identifier out of the resource
// page markup. ok is false when the page carries none.
func extractTicketID(html string) (id string, ok bool) {
	m := ticketIDRe.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func extractArticleID(html string) (id string, ok bool) {
	m := articleIDRe.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// looksLikeLoginPage detects a rejected login. The portal answers HTTP 200
// either way; the only signal is that the body still carries the sign-in
// form.
func looksLikeLoginPage(html string) bool {
	return strings.Contains(html, "Sign in") && strings.Contains(html, "username")
}
