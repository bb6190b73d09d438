// Package analytics provides read-only aggregation over stored chat
// sessions. Every function is pure: no mutation of its input, no
// persistence, and an empty session list always yields an empty result,
// never an error.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/dayoung-p/maumlog/internal/models"
)

// Filter returns the sessions matching the emotion set (inclusive-OR; an
// empty set matches everything) and the inclusive date bounds. Nil bounds
// are open.
func Filter(sessions []models.ChatSession, emotions []models.Emotion, start, end *time.Time) []models.ChatSession {
	allowed := make(map[models.Emotion]bool, len(emotions))
	for _, e := range emotions {
		allowed[e] = true
	}

	filtered := make([]models.ChatSession, 0, len(sessions))
	for _, session := range sessions {
		if len(allowed) > 0 && !allowed[session.Emotion] {
			continue
		}
		if start != nil && session.Date.Before(*start) {
			continue
		}
		if end != nil && session.Date.After(*end) {
			continue
		}
		filtered = append(filtered, session)
	}
	return filtered
}

// DayStart normalizes a date-only bound to the start of that day.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayEnd normalizes a date-only bound to the end of that day.
func DayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// SortByDateDesc returns a copy sorted most recent first. The sort is
// stable, so equal dates keep their stored order.
func SortByDateDesc(sessions []models.ChatSession) []models.ChatSession {
	sorted := make([]models.ChatSession, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return sorted
}

// WeekKey identifies an ISO week.
type WeekKey struct {
	Year int
	Week int
}

// GroupByISOWeek collects session emotions per ISO week. Sessions without
// an emotion are skipped.
func GroupByISOWeek(sessions []models.ChatSession) map[WeekKey][]models.Emotion {
	groups := make(map[WeekKey][]models.Emotion)
	for _, session := range sessions {
		if session.Emotion == "" {
			continue
		}
		year, week := session.Date.ISOWeek()
		key := WeekKey{Year: year, Week: week}
		groups[key] = append(groups[key], session.Emotion)
	}
	return groups
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// GroupByMonth collects session emotions per calendar month. Sessions
// without an emotion are skipped.
func GroupByMonth(sessions []models.ChatSession) map[MonthKey][]models.Emotion {
	groups := make(map[MonthKey][]models.Emotion)
	for _, session := range sessions {
		if session.Emotion == "" {
			continue
		}
		key := MonthKey{Year: session.Date.Year(), Month: session.Date.Month()}
		groups[key] = append(groups[key], session.Emotion)
	}
	return groups
}

// FrequencyRow is one emotion's share of an observation list.
type FrequencyRow struct {
	Emotion models.Emotion `json:"emotion"`
	Count   int            `json:"count"`
	Percent float64        `json:"percent"`
}

// FrequencyTable counts each emotion and derives its percentage, rounded
// to one decimal. Rows are ordered by count descending; ties keep the
// canonical emotion order.
func FrequencyTable(emotions []models.Emotion) []FrequencyRow {
	counts := make(map[models.Emotion]int, len(emotions))
	for _, e := range emotions {
		counts[e]++
	}

	total := len(emotions)
	rows := make([]FrequencyRow, 0, len(counts))
	for _, e := range models.Emotions {
		count, ok := counts[e]
		if !ok {
			continue
		}
		rows = append(rows, FrequencyRow{
			Emotion: e,
			Count:   count,
			Percent: roundOneDecimal(float64(count) / float64(total) * 100),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// TimeBucket is one of the four fixed time-of-day ranges. Each range is
// half-open, inclusive of its lower bound.
type TimeBucket string

const (
	BucketDawn      TimeBucket = "새벽 (0-6시)"
	BucketMorning   TimeBucket = "오전 (6-12시)"
	BucketAfternoon TimeBucket = "오후 (12-18시)"
	BucketEvening   TimeBucket = "저녁 (18-24시)"
)

var timeBuckets = []TimeBucket{BucketDawn, BucketMorning, BucketAfternoon, BucketEvening}

// BucketFor maps an hour [0,24) to its time-of-day bucket.
func BucketFor(hour int) TimeBucket {
	switch {
	case hour < 6:
		return BucketDawn
	case hour < 12:
		return BucketMorning
	case hour < 18:
		return BucketAfternoon
	default:
		return BucketEvening
	}
}

// TimeOfDayRow is one bucket's emotion counts plus its row total.
type TimeOfDayRow struct {
	Bucket TimeBucket             `json:"bucket"`
	Counts map[models.Emotion]int `json:"counts"`
	Total  int                    `json:"total"`
}

// CrossTabulateByTimeOfDay counts emotions per time-of-day bucket. Only
// buckets with observations are returned, sorted by row total descending;
// ties keep chronological bucket order.
func CrossTabulateByTimeOfDay(sessions []models.ChatSession) []TimeOfDayRow {
	byBucket := make(map[TimeBucket]map[models.Emotion]int)
	for _, session := range sessions {
		if session.Emotion == "" {
			continue
		}
		bucket := BucketFor(session.Date.Hour())
		if byBucket[bucket] == nil {
			byBucket[bucket] = make(map[models.Emotion]int)
		}
		byBucket[bucket][session.Emotion]++
	}

	rows := make([]TimeOfDayRow, 0, len(byBucket))
	for _, bucket := range timeBuckets {
		counts, ok := byBucket[bucket]
		if !ok {
			continue
		}
		total := 0
		for _, count := range counts {
			total += count
		}
		rows = append(rows, TimeOfDayRow{Bucket: bucket, Counts: counts, Total: total})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Total > rows[j].Total
	})
	return rows
}

// DominantEmotion returns the most frequent emotion across the sessions.
// Ties break by the canonical emotion order (first declared wins). The
// second return is false when no tagged session exists.
func DominantEmotion(sessions []models.ChatSession) (models.Emotion, bool) {
	counts := make(map[models.Emotion]int)
	for _, session := range sessions {
		if session.Emotion != "" {
			counts[session.Emotion]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}

	var dominant models.Emotion
	best := 0
	for _, e := range models.Emotions {
		if counts[e] > best {
			dominant = e
			best = counts[e]
		}
	}
	return dominant, true
}

// RecentEmotions returns the emotions of the n most recently modified
// tagged sessions, oldest first.
func RecentEmotions(sessions []models.ChatSession, n int) []models.Emotion {
	tagged := make([]models.ChatSession, 0, len(sessions))
	for _, session := range sessions {
		if session.Emotion != "" {
			tagged = append(tagged, session)
		}
	}
	sort.SliceStable(tagged, func(i, j int) bool {
		return tagged[i].Date.Before(tagged[j].Date)
	})

	if n > len(tagged) {
		n = len(tagged)
	}
	recent := make([]models.Emotion, 0, n)
	for _, session := range tagged[len(tagged)-n:] {
		recent = append(recent, session.Emotion)
	}
	return recent
}

// Diversity counts the distinct emotions observed.
func Diversity(emotions []models.Emotion) int {
	seen := make(map[models.Emotion]bool, len(emotions))
	for _, e := range emotions {
		seen[e] = true
	}
	return len(seen)
}

func roundOneDecimal(val float64) float64 {
	return math.Round(val*10) / 10
}
