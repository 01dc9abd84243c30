package weather

import (
	"strconv"
	"strings"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
)

// Peak picks the rainiest hour: maximum rain inches, or maximum rain chance when no hour has measurable rain.
// Ties keep the earliest entry. Returns nil for an empty forecast.
func Peak(entries []model.HourlyEntry) *model.HourlyEntry {
	if len(entries) == 0 {
		return nil
	}

	best := 0
	for i := 1; i < len(entries); i++ {
		if entries[i].RainInches > entries[best].RainInches {
			best = i
		}
	}
	if entries[best].RainInches > 0 {
		return &entries[best]
	}

	best = 0
	for i := 1; i < len(entries); i++ {
		if entries[i].RainChance > entries[best].RainChance {
			best = i
		}
	}
	return &entries[best]
}

// Worst returns the backend's worst hour, falling back to Peak
func Worst(w *model.JobWeather) *model.HourlyEntry {
	if w == nil {
		return nil
	}
	if w.WorstHour != nil {
		return w.WorstHour
	}
	return Peak(w.Hourly)
}

// HourOf extracts the wall-clock hour from "2025-06-01T14:00:00-05:00", "2025-06-01 14:00" or a bare "14:00[:00]".
// Any zone suffix is ignored; the time is never converted.
func HourOf(timestamp string) (int, bool) {
	s := strings.TrimSpace(timestamp)
	if i := strings.IndexAny(s, "Tt "); i >= 0 && strings.Contains(s[:i], "-") {
		s = strings.TrimSpace(s[i+1:])
	}

	end := 0
	for end < len(s) && end < 2 && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	if end < len(s) && s[end] != ':' {
		return 0, false
	}

	hour, err := strconv.Atoi(s[:end])
	if err != nil || hour > 23 {
		return 0, false
	}
	return hour, true
}

// Mark is one forecast hour annotated against the job's scheduled window
type Mark struct {
	model.HourlyEntry
	Hour     int
	HasHour  bool
	InWindow bool
	JobStart bool
	JobEnd   bool
}

// Annotate marks the hours inside [start hour, end hour] inclusive, plus the exact start and end hours.
// An end hour before the start hour is an overnight job and the window wraps past midnight.
// A missing or unparsable end collapses the window to the start hour; a missing start leaves every hour unmarked.
func Annotate(entries []model.HourlyEntry, routeStart, routeEnd string) []Mark {
	startHour, hasStart := HourOf(routeStart)
	endHour, hasEnd := HourOf(routeEnd)
	if !hasEnd {
		endHour = startHour
	}
	overnight := endHour < startHour

	marks := make([]Mark, len(entries))
	for i, entry := range entries {
		hour, ok := HourOf(entry.Time)
		marks[i] = Mark{HourlyEntry: entry, Hour: hour, HasHour: ok}
		if !ok || !hasStart {
			continue
		}
		if overnight {
			marks[i].InWindow = hour >= startHour || hour <= endHour
		} else {
			marks[i].InWindow = hour >= startHour && hour <= endHour
		}
		marks[i].JobStart = hour == startHour
		marks[i].JobEnd = hasEnd && hour == endHour
	}
	return marks
}

// ScrollIndex returns the index of the job-start hour, or 0 when the window is not in the forecast
func ScrollIndex(marks []Mark) int {
	for i, m := range marks {
		if m.JobStart {
			return i
		}
	}
	return 0
}
