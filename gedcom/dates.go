package gedcom

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/camden-git/familytreebackend/models"
)

var monthNames = map[string]time.Month{
	"JAN": time.January, "JANUARY": time.January,
	"FEB": time.February, "FEBRUARY": time.February,
	"MAR": time.March, "MARCH": time.March,
	"APR": time.April, "APRIL": time.April,
	"MAY": time.May,
	"JUN": time.June, "JUNE": time.June,
	"JUL": time.July, "JULY": time.July,
	"AUG": time.August, "AUGUST": time.August,
	"SEP": time.September, "SEPT": time.September, "SEPTEMBER": time.September,
	"OCT": time.October, "OCTOBER": time.October,
	"NOV": time.November, "NOVEMBER": time.November,
	"DEC": time.December, "DECEMBER": time.December,
}

// leading qualifier tokens, compared without a trailing dot
var qualifierTokens = map[string]models.DateQualifier{
	"ABT":    models.QualifierAbout,
	"ABOUT":  models.QualifierAbout,
	"CIRCA":  models.QualifierAbout,
	"CA":     models.QualifierAbout,
	"C":      models.QualifierAbout,
	"CAL":    models.QualifierCalculated,
	"EST":    models.QualifierEstimated,
	"BEF":    models.QualifierBefore,
	"BEFORE": models.QualifierBefore,
	"AFT":    models.QualifierAfter,
	"AFTER":  models.QualifierAfter,
	"FROM":   models.QualifierFrom,
	"TO":     models.QualifierTo,
	"INT":    models.QualifierInterpreted,
}

var (
	betweenRegex = regexp.MustCompile(`^BET(?:WEEN)?\.?\s+(.+?)\s+AND\s+(.+)$`)
	fromToRegex  = regexp.MustCompile(`^FROM\s+(.+?)\s+TO\s+(.+)$`)
	phraseRegex  = regexp.MustCompile(`\s*\(.*\)\s*$`)

	dayMonthYearRegex = regexp.MustCompile(`^(\d{1,2})\s+([A-Z]+)\.?,?\s+(\d{1,4})(?:/\d{1,2})?$`)
	monthDayYearRegex = regexp.MustCompile(`^([A-Z]+)\.?\s+(\d{1,2}),?\s+(\d{1,4})(?:/\d{1,2})?$`)
	monthYearRegex    = regexp.MustCompile(`^([A-Z]+)\.?,?\s+(\d{1,4})(?:/\d{1,2})?$`)
	yearRegex         = regexp.MustCompile(`^(\d{1,4})(?:/\d{1,2})?$`)
)

// generic layouts tried after the GEDCOM-style patterns
var fallbackLayouts = []struct {
	layout    string
	precision string
}{
	{"2006-01-02", models.PrecisionDay},
	{"2006/01/02", models.PrecisionDay},
	{"01/02/2006", models.PrecisionDay},
	{"1/2/2006", models.PrecisionDay},
	{"02.01.2006", models.PrecisionDay},
	{"2.1.2006", models.PrecisionDay},
	{"2006-01", models.PrecisionMonth},
	{time.RFC3339, models.PrecisionDay},
}

// NormalizeDate parses a genealogical date phrase. It never fails: text that cannot
// be understood comes back with Valid=false and no instant, keeping the original text.
func NormalizeDate(text string) models.LifeDate {
	original := strings.TrimSpace(text)
	if original == "" {
		return models.LifeDate{}
	}
	upper := strings.ToUpper(strings.Join(strings.Fields(original), " "))

	if m := betweenRegex.FindStringSubmatch(upper); m != nil {
		return normalizeRange(original, models.QualifierBetween, m[1], m[2])
	}
	if m := fromToRegex.FindStringSubmatch(upper); m != nil {
		return normalizeRange(original, models.QualifierFrom, m[1], m[2])
	}

	qualifier, rest := stripQualifier(upper)
	if qualifier == models.QualifierInterpreted {
		rest = phraseRegex.ReplaceAllString(rest, "")
	}

	date := models.LifeDate{Original: original, Qualifier: qualifier}
	if t, precision, ok := parseDateValue(rest); ok {
		date.Start = &t
		date.Precision = precision
		date.Valid = true
	}
	return date
}

func stripQualifier(upper string) (models.DateQualifier, string) {
	tokens := strings.Fields(upper)
	if len(tokens) < 2 {
		return models.QualifierExact, upper
	}
	if q, ok := qualifierTokens[strings.TrimSuffix(tokens[0], ".")]; ok {
		return q, strings.Join(tokens[1:], " ")
	}
	return models.QualifierExact, upper
}

func normalizeRange(original string, qualifier models.DateQualifier, from, to string) models.LifeDate {
	date := models.LifeDate{Original: original, Qualifier: qualifier}
	start, startPrecision, okStart := parseDateValue(from)
	end, endPrecision, okEnd := parseDateValue(to)
	if !okStart || !okEnd {
		return date
	}
	if end.Before(start) {
		start, end = end, start
	}
	date.Start = &start
	date.End = &end
	date.Precision = coarser(startPrecision, endPrecision)
	date.Valid = true
	return date
}

// parseDateValue tries the patterns from the most to the least specific.
func parseDateValue(s string) (time.Time, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, "", false
	}

	if m := dayMonthYearRegex.FindStringSubmatch(s); m != nil {
		if month, ok := monthNames[m[2]]; ok {
			return buildDate(m[3], month, m[1], models.PrecisionDay)
		}
	}
	if m := monthDayYearRegex.FindStringSubmatch(s); m != nil {
		if month, ok := monthNames[m[1]]; ok {
			return buildDate(m[3], month, m[2], models.PrecisionDay)
		}
	}
	if m := monthYearRegex.FindStringSubmatch(s); m != nil {
		if month, ok := monthNames[m[1]]; ok {
			return buildDate(m[2], month, "1", models.PrecisionMonth)
		}
	}
	if m := yearRegex.FindStringSubmatch(s); m != nil {
		return buildDate(m[1], time.January, "1", models.PrecisionYear)
	}

	for _, f := range fallbackLayouts {
		if t, err := time.Parse(f.layout, s); err == nil {
			return t.UTC(), f.precision, true
		}
	}
	return time.Time{}, "", false
}

func buildDate(yearText string, month time.Month, dayText, precision string) (time.Time, string, bool) {
	year, err := strconv.Atoi(yearText)
	if err != nil || year <= 0 {
		return time.Time{}, "", false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil || day <= 0 {
		return time.Time{}, "", false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow, e.g. 31 FEB becomes 3 MAR
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, "", false
	}
	return t, precision, true
}

var precisionRank = map[string]int{
	models.PrecisionDay:   0,
	models.PrecisionMonth: 1,
	models.PrecisionYear:  2,
}

func coarser(a, b string) string {
	if precisionRank[b] > precisionRank[a] {
		return b
	}
	return a
}
