package transport

import (
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-imap"
)

// The CLI accepts IMAP-style search queries everywhere. The REST transport
// rewrites them into Zoho searchKey syntax; the IMAP transport parses them
// into search criteria.

var restRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\bSUBJECT\s+"([^"]*)"`), "subject:$1"},
	{regexp.MustCompile(`(?i)\bSUBJECT\s+(\S+)`), "subject:$1"},
	{regexp.MustCompile(`(?i)\bFROM\s+"([^"]*)"`), "sender:$1"},
	{regexp.MustCompile(`(?i)\bFROM\s+(\S+)`), "sender:$1"},
	{regexp.MustCompile(`(?i)\bTO\s+"([^"]*)"`), "to:$1"},
	{regexp.MustCompile(`(?i)\bTO\s+(\S+)`), "to:$1"},
	{regexp.MustCompile(`(?i)\b(?:BODY|TEXT)\s+"([^"]*)"`), "entire:$1"},
	{regexp.MustCompile(`(?i)\b(?:BODY|TEXT)\s+(\S+)`), "entire:$1"},
}

var restSinceRe = regexp.MustCompile(`(?i)\bSINCE\s+\S+\s*`)

// TranslateREST converts an IMAP-style query to a Zoho REST searchKey.
// SINCE clauses are dropped: recency is passed to the search call as its own
// parameter. ALL translates to an empty key, which selects the plain listing
// endpoint instead of search.
func TranslateREST(query string) string {
	q := strings.TrimSpace(query)
	if q == "" || strings.EqualFold(q, "ALL") {
		return ""
	}

	q = restSinceRe.ReplaceAllString(q, "")
	translated := false
	for _, rule := range restRules {
		if rule.re.MatchString(q) {
			q = rule.re.ReplaceAllString(q, rule.repl)
			translated = true
		}
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	if !translated && !strings.Contains(q, ":") {
		return "entire:" + q
	}
	return q
}

// ParseIMAPQuery builds search criteria from an IMAP-style query string.
// recencyDays > 0 adds a Since bound. Unrecognized leading keywords fall
// back to a full-text search on the whole term.
func ParseIMAPQuery(query string, recencyDays int, now time.Time) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()

	tokens := tokenizeQuery(query)
	for i := 0; i < len(tokens); i++ {
		keyword := strings.ToUpper(tokens[i])
		arg := ""
		if i+1 < len(tokens) {
			arg = tokens[i+1]
		}

		switch keyword {
		case "ALL":
		case "UNSEEN":
			criteria.WithoutFlags = append(criteria.WithoutFlags, imap.SeenFlag)
		case "SEEN":
			criteria.WithFlags = append(criteria.WithFlags, imap.SeenFlag)
		case "SUBJECT":
			criteria.Header.Add("Subject", arg)
			i++
		case "FROM":
			criteria.Header.Add("From", arg)
			i++
		case "TO":
			criteria.Header.Add("To", arg)
			i++
		case "BODY":
			criteria.Body = append(criteria.Body, arg)
			i++
		case "TEXT":
			criteria.Text = append(criteria.Text, arg)
			i++
		case "SINCE":
			if t, err := time.Parse("02-Jan-2006", arg); err == nil {
				criteria.Since = t
			}
			i++
		default:
			criteria.Text = append(criteria.Text, tokens[i])
		}
	}

	if recencyDays > 0 && criteria.Since.IsZero() {
		criteria.Since = now.AddDate(0, 0, -recencyDays)
	}
	return criteria
}

// tokenizeQuery splits on whitespace, keeping double-quoted strings as one
// token with the quotes removed.
func tokenizeQuery(query string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	for _, r := range strings.TrimSpace(query) {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
