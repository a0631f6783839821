package enrich

import (
	"regexp"
	"strings"
)

// fallbackTerms pad the terms list when the provider returns fewer than
// three usable bullets.
var fallbackTerms = []string{
	"Valid for a limited time only.",
	"Cannot be combined with other offers.",
	"See the store website for full conditions.",
}

// CleanTitle strips surrounding quotes and whitespace from a generated
// title.
func CleanTitle(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.Trim(s, "“”‘’")
	return strings.TrimSpace(s)
}

var bulletPrefix = regexp.MustCompile(`^[\s\-\*\d\.\)]+`)

// NormalizeTerms splits provider output into exactly three deduplicated,
// punctuated bullet items, padding from the fallback list when short.
func NormalizeTerms(raw string) []string {
	seen := make(map[string]bool)
	var terms []string

	for _, line := range strings.Split(raw, "\n") {
		line = bulletPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasSuffix(line, ".") && !strings.HasSuffix(line, "!") {
			line += "."
		}
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, line)
		if len(terms) == 3 {
			break
		}
	}

	for _, fb := range fallbackTerms {
		if len(terms) == 3 {
			break
		}
		if !seen[strings.ToLower(fb)] {
			seen[strings.ToLower(fb)] = true
			terms = append(terms, fb)
		}
	}
	return terms
}

// allowedTags is the HTML allow-list for brand descriptions.
var allowedTags = map[string]bool{
	"p": true, "br": true, "strong": true, "em": true,
	"ul": true, "ol": true, "li": true,
}

var tagPattern = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)[^>]*>`)

// CleanBrandDescription restricts markup to the allow-list and appends a
// hashtag line when the text does not already carry one.
func CleanBrandDescription(raw, advertiser string) string {
	s := strings.TrimSpace(raw)
	s = tagPattern.ReplaceAllStringFunc(s, func(tag string) string {
		m := tagPattern.FindStringSubmatch(tag)
		if m == nil || !allowedTags[strings.ToLower(m[1])] {
			return ""
		}
		return tag
	})
	s = strings.TrimSpace(s)

	if !strings.Contains(s, "#") {
		tag := strings.ReplaceAll(strings.ToLower(advertiser), " ", "")
		if tag != "" {
			s += "\n<p>#" + tag + "</p>"
		}
	}
	return s
}
