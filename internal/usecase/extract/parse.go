package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var isoDuration = regexp.MustCompile(`(?i)^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// parseISODuration converts an ISO-8601 duration ("PT1H30M") to minutes.
func parseISODuration(s string) (int, bool) {
	m := isoDuration.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "") {
		return 0, false
	}
	minutes := atoi(m[1])*24*60 + atoi(m[2])*60 + atoi(m[3])
	if m[4] != "" {
		sec, _ := strconv.ParseFloat(m[4], 64)
		minutes += int(sec / 60)
	}
	return minutes, true
}

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// parseNumber strips every non-numeric character before parsing,
// so "250 kcal" and "15.5g" both parse.
func parseNumber(s string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, false
	}
	// "1.2.3" style leftovers: keep the leading number only
	if i := strings.Index(cleaned, "."); i >= 0 {
		if j := strings.Index(cleaned[i+1:], "."); j >= 0 {
			cleaned = cleaned[:i+1+j]
		}
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// visualScore rates an image URL by quality hints.
func visualScore(imageURL string) (float64, bool) {
	if imageURL == "" {
		return 0, false
	}
	u := strings.ToLower(imageURL)
	switch {
	case strings.Contains(u, "placeholder"), strings.Contains(u, "default"), strings.Contains(u, "noimage"):
		return 0.2, true
	case strings.Contains(u, "unsplash"), strings.Contains(u, "high-res"), strings.Contains(u, "hd"):
		return 0.8, true
	default:
		return 0.6, true
	}
}

func avgRuneLength(items []string) (float64, bool) {
	if len(items) == 0 {
		return 0, false
	}
	total := 0
	for _, s := range items {
		total += utf8.RuneCountInString(s)
	}
	return float64(total) / float64(len(items)), true
}
