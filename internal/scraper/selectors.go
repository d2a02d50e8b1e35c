package scraper

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// selectorChain lists candidate selectors for one field in priority order.
// The first candidate that produces a non-empty value wins.
type selectorChain []string

var (
	digitsOnly     = regexp.MustCompile(`[^0-9]`)
	pageExt        = regexp.MustCompile(`(?i)\.(html?|php)$`)
	backgroundURL  = regexp.MustCompile(`background-image:\s*url\(\s*["']?(.+?)["']?\s*\)`)
	watchPathID    = regexp.MustCompile(`/watch/([^/?#]+)`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// text returns the first non-empty trimmed text matched by the chain
func (c selectorChain) text(s *goquery.Selection) string {
	for _, sel := range c {
		found := false
		value := ""
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			value = cleanText(el.Text())
			found = value != ""
			return !found
		})
		if found {
			return value
		}
	}
	return ""
}

// attr returns the first non-empty value of any of attrs on elements matched by the chain
func (c selectorChain) attr(s *goquery.Selection, attrs ...string) string {
	for _, sel := range c {
		value := ""
		s.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			value = firstAttr(el, attrs...)
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

// count parses a numeric counter; absent or unparsable counters are 0
func (c selectorChain) count(s *goquery.Selection) int {
	return parseCount(c.text(s))
}

// firstAttr returns the first non-empty attribute of s among attrs
func firstAttr(s *goquery.Selection, attrs ...string) string {
	for _, name := range attrs {
		if v := strings.TrimSpace(s.AttrOr(name, "")); v != "" {
			return v
		}
	}
	return ""
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}

func parseCount(s string) int {
	n, err := strconv.Atoi(digitsOnly.ReplaceAllString(s, ""))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// idFromHref takes the last non-empty path segment of href without its extension,
// falling back to the third slash-separated segment
func idFromHref(href string) string {
	p := href
	if u, err := url.Parse(href); err == nil {
		p = u.Path
	}

	segments := strings.Split(p, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if seg := strings.TrimSpace(segments[i]); seg != "" {
			if id := pageExt.ReplaceAllString(seg, ""); id != "" {
				return id
			}
			break
		}
	}

	if parts := strings.Split(href, "/"); len(parts) > 2 {
		return strings.TrimSpace(parts[2])
	}
	return ""
}

// watchID extracts the id from a /watch/{id} link
func watchID(href string) string {
	if m := watchPathID.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

// backgroundImage pulls the url out of an inline background-image declaration
func backgroundImage(style string) string {
	if m := backgroundURL.FindStringSubmatch(style); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// resolveURL makes ref absolute against base
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return strings.TrimRight(base, "/") + ref
}

// splitList splits a comma-separated list, dropping blanks
func splitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = cleanText(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ajaxFragment unwraps the origin's {"result": "<html>"} envelope; anything else is taken as raw markup
func ajaxFragment(body string) string {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return body
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil || len(envelope.Result) == 0 {
		return body
	}

	var html string
	if err := json.Unmarshal(envelope.Result, &html); err != nil {
		return body
	}
	return html
}
