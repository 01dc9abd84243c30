package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Candidate field names per logical attribute, in priority order.
// Older campaign generators wrote snake_case, newer ones camelCase, and a few shorthand names exist.
var (
	aliasJobID        = []string{"internal_job_id", "job_id", "jobId", "internalJobId"}
	aliasForecastDate = []string{"forecast_date", "forecastDate", "date"}
	aliasLensID       = []string{"lens_id", "lensId", "lens"}
	aliasProperty     = []string{"property_name", "propertyName", "property"}
	aliasService      = []string{"service_name", "serviceName", "service"}
	aliasRouteStart   = []string{"route_start_time", "routeStartTime", "start_time"}
	aliasRouteEnd     = []string{"route_end_time", "routeEndTime", "end_time"}
	aliasRisk         = []string{"risk_level", "riskLevel", "risk"}
	aliasRainChance   = []string{"max_rain_chance", "maxRainChance", "rain_chance"}
	aliasRainInches   = []string{"max_rain_inches", "maxRainInches", "rain_inches"}
	aliasHourly       = []string{"hourly_weather", "hourlyWeather", "hourly"}
	aliasEstimator    = []string{"estimator_initials", "estimatorInitials"}
	aliasExistingVote = []string{"existing_vote", "existingVote"}

	aliasVoteValue  = []string{"vote_value", "voteValue", "vote"}
	aliasVoteReason = []string{"vote_reason", "voteReason", "reason", "comment"}
	aliasDelay      = []string{"delay_minutes", "delayMinutes"}
	aliasVotedAt    = []string{"voted_at", "votedAt"}
)

// lookup returns the first present, non-null value among the aliases
func lookup(row map[string]any, aliases []string) (any, bool) {
	for _, name := range aliases {
		if v, ok := row[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(row map[string]any, aliases []string) string {
	v, ok := lookup(row, aliases)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func floatField(row map[string]any, aliases []string) float64 {
	v, ok := lookup(row, aliases)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// intPtrField returns nil when absent or not a positive-or-zero integer value
func intPtrField(row map[string]any, aliases []string) *int {
	if _, ok := lookup(row, aliases); !ok {
		return nil
	}
	s := stringField(row, aliases)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func timePtrField(row map[string]any, aliases []string) *time.Time {
	s := stringField(row, aliases)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func rawField(row map[string]any, aliases []string) json.RawMessage {
	v, ok := lookup(row, aliases)
	if !ok {
		return nil
	}
	if s, isString := v.(string); isString {
		// some generators stored the payload as an encoded string
		if json.Valid([]byte(s)) {
			return json.RawMessage(s)
		}
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// dateField trims timestamps down to their date so keys compare equal across sources
func dateField(row map[string]any, aliases []string) string {
	s := stringField(row, aliases)
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		return s[:10]
	}
	return s
}
