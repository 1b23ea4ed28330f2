package compare

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/optimizer-cli/internal/model"
)

// calendarDay is a parsed date reduced to year/month/day.
type calendarDay struct {
	Year  int
	Month int
	Day   int
}

var numericDateRe = regexp.MustCompile(`^(\d{1,4})[/-](\d{1,2})[/-](\d{1,4})$`)

// textualDateLayouts cover month-abbreviation and full month-name forms.
var textualDateLayouts = []string{
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Jan-02-2006",
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
}

// parseDate parses a date through a flexible multi-pattern parser: ISO,
// slash/dash numeric forms with 2- or 4-digit years, and month-name forms.
// Ambiguous DD/MM vs MM/DD numeric forms are resolved by whichever component
// exceeds 12; when neither does, US month-first order wins.
func parseDate(s string) (calendarDay, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return calendarDay{}, false
	}

	// ISO timestamp or date.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return calendarDay{t.Year(), int(t.Month()), t.Day()}, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return calendarDay{t.Year(), int(t.Month()), t.Day()}, true
	}

	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		return parseNumericDate(m[1], m[2], m[3])
	}

	for _, layout := range textualDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDay{t.Year(), int(t.Month()), t.Day()}, true
		}
	}

	return calendarDay{}, false
}

func parseNumericDate(a, b, c string) (calendarDay, bool) {
	av, _ := strconv.Atoi(a)
	bv, _ := strconv.Atoi(b)
	cv, _ := strconv.Atoi(c)

	// Year-first form: 2020/01/13.
	if len(a) == 4 {
		return assembleDay(av, bv, cv)
	}

	year := cv
	if len(c) <= 2 {
		year = expandYear(cv)
	}

	// a and b are day/month in some order.
	switch {
	case av > 12 && bv <= 12:
		return assembleDay(year, bv, av)
	case bv > 12 && av <= 12:
		return assembleDay(year, av, bv)
	case av > 12 && bv > 12:
		return calendarDay{}, false
	default:
		// Ambiguous: default to US month-first.
		return assembleDay(year, av, bv)
	}
}

func assembleDay(year, month, day int) (calendarDay, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return calendarDay{}, false
	}
	return calendarDay{year, month, day}, true
}

// expandYear maps a 2-digit year onto 2000s or 1900s at a pivot of 50.
func expandYear(y int) int {
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

// compareDateExact parses both sides and compares calendar-day equality.
func compareDateExact(predicted, groundTruth string) model.ComparisonResult {
	pd, pok := parseDate(predicted)
	gd, gok := parseDate(groundTruth)

	if !pok || !gok {
		return model.ComparisonResult{
			IsMatch:        false,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareDateExact,
			Classification: model.MatchNone,
			Details:        "unparseable date",
		}
	}

	if pd != gd {
		return model.ComparisonResult{
			IsMatch:        false,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareDateExact,
			Classification: model.MatchNone,
		}
	}

	if strings.TrimSpace(predicted) == strings.TrimSpace(groundTruth) {
		return model.ComparisonResult{
			IsMatch:        true,
			Confidence:     model.ConfidenceHigh,
			MatchType:      model.CompareDateExact,
			Classification: model.MatchExact,
		}
	}
	return model.ComparisonResult{
		IsMatch:        true,
		Confidence:     model.ConfidenceHigh,
		MatchType:      model.CompareDateExact,
		Classification: model.MatchNormalized,
		Details:        "same calendar day, different formatting",
	}
}
