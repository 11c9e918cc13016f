package submit

import (
	"regexp"
	"strconv"
	"time"
)

// Closed-contest phrases, Polish first, scanned case-insensitively over the
// page text.
var expiredPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)konkurs\s+(zakończony|zamknięty|nieaktywny|wygasł)`),
	regexp.MustCompile(`(?i)(termin|czas)\s+(minął|upłynął|zakończył)`),
	regexp.MustCompile(`(?i)formularz\s+(zamknięty|niedostępny|nieaktywny)`),
	regexp.MustCompile(`(?i)zgłoszenia\s+(zamknięte|zakończone)`),
	regexp.MustCompile(`(?i)konkurs\s+trwał\s+do`),
	regexp.MustCompile(`(?i)expired|closed|ended|no longer`),
}

var endDateRe = regexp.MustCompile(`do\s+(\d{1,2})[.\-/](\d{1,2})[.\-/](\d{4})`)

var formKeywordRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)pytanie`),
	regexp.MustCompile(`(?i)odpowiedź`),
	regexp.MustCompile(`(?i)wyślij`),
}

// DetectExpired reports whether the page describes a closed contest: a
// closed-contest phrase, a passed "do DD.MM.YYYY" end date, or no form and
// none of the question/answer/send keywords.
//
// The form-absent branch can misfire on a page that has not finished
// loading. Known false-positive risk, kept as is.
func DetectExpired(text string, hasForm bool, now time.Time) bool {
	for _, re := range expiredPatterns {
		if re.MatchString(text) {
			return true
		}
	}

	if m := endDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if validDate(year, month, day) {
			end := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
			if now.After(end) {
				return true
			}
		}
	}

	if !hasForm {
		for _, re := range formKeywordRes {
			if re.MatchString(text) {
				return false
			}
		}
		return true
	}
	return false
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Day() == day && int(d.Month()) == month
}
