package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Schedule is a resolved start/end pair. Both sides are always populated
// even when only one was explicit in the utterance.
type Schedule struct {
	Start time.Time
	End   time.Time
}

// defaultSchedule is today 09:00-10:00 in local time.
func defaultSchedule(now time.Time) Schedule {
	y, m, d := now.Date()
	return Schedule{
		Start: time.Date(y, m, d, 9, 0, 0, 0, now.Location()),
		End:   time.Date(y, m, d, 10, 0, 0, 0, now.Location()),
	}
}

var (
	explicitDateRe = regexp.MustCompile(`(\d{1,2})월\s*(\d{1,2})일`)
	explicitTimeRe = regexp.MustCompile(`(\d{1,2})시(?:\s*(\d{1,2})분)?에?`)
	meridiemRe     = regexp.MustCompile(`저녁|오후`)
	strayMarkerRe  = regexp.MustCompile(`오전|오후|저녁`)
	exactHourRe    = regexp.MustCompile(`정각에?`)
)

// dateRule tries one date expression against text. On a match it returns the
// text with the expression consumed, the shifted schedule, and true.
// Rules are pure so each is unit-testable in isolation.
type dateRule func(text string, now time.Time, s Schedule) (string, Schedule, bool)

// explicitDate resolves "N월 M일". The year rolls forward by one when the
// (month, day) pair has already passed this year.
func explicitDate(text string, now time.Time, s Schedule) (string, Schedule, bool) {
	m := explicitDateRe.FindStringSubmatch(text)
	if m == nil {
		return text, s, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])

	year := now.Year()
	if month < int(now.Month()) || (month == int(now.Month()) && day < now.Day()) {
		year++
	}

	s.Start = setDate(s.Start, year, time.Month(month), day)
	s.End = setDate(s.End, year, time.Month(month), day)
	return stripOnce(text, m[0]), s, true
}

// plusDays consumes a relative-day token and shifts both sides by n days.
func plusDays(token string, n int) dateRule {
	return func(text string, now time.Time, s Schedule) (string, Schedule, bool) {
		if !strings.Contains(text, token) {
			return text, s, false
		}
		s.Start = s.Start.AddDate(0, 0, n)
		s.End = s.End.AddDate(0, 0, n)
		return stripOnce(text, token), s, true
	}
}

// dateRules in priority order; only the first match fires. "모레" is tested
// before "내일" so "내일 모레" consumes the two-day token (the leading "내일"
// is left for the title trim, matching colloquial usage where both mean +2).
var dateRules = []dateRule{
	explicitDate,
	plusDays("모레", 2),
	plusDays("내일", 1),
	plusDays("다음주", 7),
}

// timeRule mirrors dateRule for clock expressions. The original utterance is
// passed alongside the working text because meridiem markers may sit in a
// span already consumed by an earlier rule.
type timeRule func(text, original string, s Schedule) (string, Schedule, bool)

// explicitTime resolves "H시" / "H시 M분", shifting hours 1-11 to the
// afternoon when the utterance carries a 저녁/오후 marker. End is start plus
// one hour. The trailing 에 particle and any stray meridiem marker are
// consumed so the residual title stays clean.
func explicitTime(text, original string, s Schedule) (string, Schedule, bool) {
	m := explicitTimeRe.FindStringSubmatch(text)
	if m == nil {
		return text, s, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}

	if hour <= 11 && meridiemRe.MatchString(original) {
		hour += 12
	}

	s.Start = setClock(s.Start, hour, minute)
	s.End = setClock(s.End, hour+1, minute)

	text = stripOnce(text, m[0])
	text = strings.TrimSpace(strayMarkerRe.ReplaceAllString(text, ""))
	return text, s, true
}

// namedTime consumes a named time-of-day token with a fixed window.
func namedTime(token string, startHour, endHour int) timeRule {
	return func(text, _ string, s Schedule) (string, Schedule, bool) {
		if !strings.Contains(text, token) {
			return text, s, false
		}
		s.Start = setClock(s.Start, startHour, 0)
		s.End = setClock(s.End, endHour, 0)
		return stripOnce(text, token), s, true
	}
}

var timeRules = []timeRule{
	explicitTime,
	namedTime("아침", 9, 10),
	namedTime("저녁", 19, 20),
}

// extractSchedule folds the date and time rules over the working title text.
// It returns the residual text and the resolved schedule. The original
// utterance drives context-sensitive checks (meridiem, 정각).
func extractSchedule(text, original string, now time.Time) (string, Schedule) {
	s := defaultSchedule(now)

	for _, rule := range dateRules {
		var ok bool
		if text, s, ok = rule(text, now, s); ok {
			break
		}
	}

	for _, rule := range timeRules {
		var ok bool
		if text, s, ok = rule(text, original, s); ok {
			break
		}
	}

	// "정각" forces the end to land on the hour regardless of which time
	// rule fired.
	if exactHourRe.MatchString(original) {
		s.End = setClock(s.End, s.End.Hour(), 0)
		text = strings.TrimSpace(exactHourRe.ReplaceAllString(text, ""))
	}

	return collapseSpaces(text), s
}

var innerSpaceRe = regexp.MustCompile(`\s+`)

func collapseSpaces(text string) string {
	return innerSpaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
}

func setDate(t time.Time, year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, t.Location())
}

func setClock(t time.Time, hour, minute int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, t.Location())
}

// stripOnce removes the first occurrence of sub and collapses the seam.
func stripOnce(text, sub string) string {
	return strings.TrimSpace(strings.Replace(text, sub, " ", 1))
}
