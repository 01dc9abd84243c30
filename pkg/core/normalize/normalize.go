package normalize

import (
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
)

// UnknownDateBucket is the group label for items without a forecast date
const UnknownDateBucket = "Unknown date"

// Items maps raw item rows into canonical vote items.
// Rows missing an identity field are skipped and logged; later duplicates of a key are dropped.
// First-seen order is preserved among survivors.
func Items(rows []map[string]any, logger *zap.Logger) []model.VoteItem {
	items := make([]model.VoteItem, 0, len(rows))
	seen := make(map[model.ItemKey]bool, len(rows))

	for i, row := range rows {
		key := keyOf(row)
		if key.IsZero() {
			logger.Warn("Skipping item without identity",
				zap.Int("row", i),
				zap.String("internal_job_id", key.InternalJobID),
				zap.String("forecast_date", key.ForecastDate),
				zap.String("lens_id", key.LensID))
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		item := model.VoteItem{
			ItemKey:           key,
			PropertyName:      stringField(row, aliasProperty),
			ServiceName:       stringField(row, aliasService),
			RouteStartTime:    stringField(row, aliasRouteStart),
			RouteEndTime:      stringField(row, aliasRouteEnd),
			RiskLevel:         stringField(row, aliasRisk),
			MaxRainChance:     floatField(row, aliasRainChance),
			MaxRainInches:     floatField(row, aliasRainInches),
			HourlyWeather:     rawField(row, aliasHourly),
			EstimatorInitials: stringField(row, aliasEstimator),
		}

		if embedded, ok := lookup(row, aliasExistingVote); ok {
			if voteRow, isMap := embedded.(map[string]any); isMap {
				if vote, ok := voteOf(voteRow, key); ok {
					item.ExistingVote = &vote
				}
			}
		}

		items = append(items, item)
	}

	return items
}

// Votes builds the key-indexed vote map. Embedded existing votes seed the map,
// then the explicit vote rows overwrite any colliding key.
func Votes(items []model.VoteItem, rows []map[string]any, logger *zap.Logger) map[model.ItemKey]model.Vote {
	votes := make(map[model.ItemKey]model.Vote, len(items))

	for _, item := range items {
		if item.ExistingVote != nil {
			votes[item.ItemKey] = *item.ExistingVote
		}
	}

	for i, row := range rows {
		key := keyOf(row)
		if key.IsZero() {
			logger.Warn("Skipping vote without identity", zap.Int("row", i))
			continue
		}
		vote, ok := voteOf(row, key)
		if !ok {
			continue
		}
		votes[key] = vote
	}

	return votes
}

// Merge writes the vote map back into the items and returns the votes in item order
func Merge(items []model.VoteItem, votes map[model.ItemKey]model.Vote) []model.Vote {
	ordered := make([]model.Vote, 0, len(votes))
	for i := range items {
		vote, ok := votes[items[i].ItemKey]
		if !ok {
			items[i].ExistingVote = nil
			continue
		}
		v := vote
		items[i].ExistingVote = &v
		ordered = append(ordered, vote)
	}
	return ordered
}

// Counts prefers backend-reported counts and otherwise derives them from the normalized collections
func Counts(reported *model.Counts, items []model.VoteItem, votes map[model.ItemKey]model.Vote) model.Counts {
	if reported != nil {
		c := *reported
		if c.Remaining == 0 && c.Total > c.Voted {
			c.Remaining = c.Total - c.Voted
		}
		return c
	}

	voted := 0
	for _, item := range items {
		if v, ok := votes[item.ItemKey]; ok && v.Complete() {
			voted++
		}
	}

	remaining := len(items) - voted
	if remaining < 0 {
		remaining = 0
	}

	return model.Counts{
		Total:     len(items),
		Voted:     voted,
		Remaining: remaining,
	}
}

// Sort orders items by forecast date, then risk (red first), then job id. The sort is stable.
func Sort(items []model.VoteItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ForecastDate != b.ForecastDate {
			return a.ForecastDate < b.ForecastDate
		}
		ra, rb := model.RiskOrdinal(a.RiskLevel), model.RiskOrdinal(b.RiskLevel)
		if ra != rb {
			return ra < rb
		}
		return a.InternalJobID < b.InternalJobID
	})
}

// DateGroup is one forecast-date bucket of items
type DateGroup struct {
	Label string
	Items []model.VoteItem
}

// Group buckets items by forecast date, keeping the order in which each date first appears
func Group(items []model.VoteItem) []DateGroup {
	var groups []DateGroup
	index := make(map[string]int)

	for _, item := range items {
		label := item.ForecastDate
		if label == "" {
			label = UnknownDateBucket
		}
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, DateGroup{Label: label})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}

func keyOf(row map[string]any) model.ItemKey {
	return model.ItemKey{
		InternalJobID: stringField(row, aliasJobID),
		ForecastDate:  dateField(row, aliasForecastDate),
		LensID:        stringField(row, aliasLensID),
	}
}

// voteOf parses a vote row; rows without a vote value carry no vote
func voteOf(row map[string]any, key model.ItemKey) (model.Vote, bool) {
	value := stringField(row, aliasVoteValue)
	if value == "" {
		return model.Vote{}, false
	}
	return model.Vote{
		ItemKey:      key,
		VoteValue:    value,
		VoteReason:   stringField(row, aliasVoteReason),
		DelayMinutes: intPtrField(row, aliasDelay),
		VotedAt:      timePtrField(row, aliasVotedAt),
	}, true
}
