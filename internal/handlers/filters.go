package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dayoung-p/maumlog/internal/analytics"
	"github.com/dayoung-p/maumlog/internal/models"
)

const dateParamLayout = "2006-01-02"

// sessionFilters are the shared query parameters of the history and
// analytics endpoints: ?emotions=기쁨,슬픔&start=2026-08-01&end=2026-08-28.
// Date bounds are inclusive whole days.
type sessionFilters struct {
	Emotions []models.Emotion
	Start    *time.Time
	End      *time.Time
}

func parseSessionFilters(r *http.Request) (sessionFilters, error) {
	var filters sessionFilters

	if raw := r.URL.Query().Get("emotions"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			emotion, err := models.ParseEmotion(strings.TrimSpace(part))
			if err != nil {
				return filters, err
			}
			filters.Emotions = append(filters.Emotions, emotion)
		}
	}

	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(dateParamLayout, raw)
		if err != nil {
			return filters, fmt.Errorf("invalid start date %q", raw)
		}
		start := analytics.DayStart(t)
		filters.Start = &start
	}

	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(dateParamLayout, raw)
		if err != nil {
			return filters, fmt.Errorf("invalid end date %q", raw)
		}
		end := analytics.DayEnd(t)
		filters.End = &end
	}

	return filters, nil
}

func (f sessionFilters) apply(sessions []models.ChatSession) []models.ChatSession {
	return analytics.Filter(sessions, f.Emotions, f.Start, f.End)
}
