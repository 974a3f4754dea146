package migration

import (
	"net/url"
	"regexp"
	"strings"
)

// extractor pulls the raw data parameter out of a migration URI.
type extractor func(raw string) (string, bool)

// firstOf tries each extractor in order and returns the first hit.
func firstOf(extractors ...extractor) extractor {
	return func(raw string) (string, bool) {
		for _, ex := range extractors {
			if v, ok := ex(raw); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}
}

var (
	reFullURI  = regexp.MustCompile(`(?i:otpauth-migration://offline\?data=)([^&]+)`)
	reDataOnly = regexp.MustCompile(`data=([^&]+)`)
	reTail     = regexp.MustCompile(`(?i:offline\?data=)(.+)$`)
)

var extractData = firstOf(
	fromQuery,
	fromRegexp(reFullURI),
	fromRegexp(reDataOnly),
	fromRegexp(reTail),
	fromSplit,
)

func fromQuery(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", false
	}
	v := q.Get("data")
	return v, v != ""
}

func fromRegexp(re *regexp.Regexp) extractor {
	return func(raw string) (string, bool) {
		m := re.FindStringSubmatch(raw)
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	}
}

func fromSplit(raw string) (string, bool) {
	_, after, ok := strings.Cut(raw, "data=")
	if !ok {
		return "", false
	}
	v, _, _ := strings.Cut(after, "&")
	return v, v != ""
}
