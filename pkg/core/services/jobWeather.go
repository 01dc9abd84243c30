package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/weather"
)

// WeatherStore defines the database operations needed for forecasts
type WeatherStore interface {
	GetJobWeather(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error)
}

// GetJobWeather returns a job's hourly forecast. A missing worst hour is filled from the rain peak.
func GetJobWeather(ctx context.Context, store WeatherStore, logger *zap.Logger, jobID, forecastDate string) (*model.JobWeather, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, model.Invalid("jobId", "jobId is required")
	}
	if _, err := time.Parse("2006-01-02", forecastDate); err != nil {
		return nil, model.Invalid("forecastDate", "forecastDate must be YYYY-MM-DD")
	}

	w, err := store.GetJobWeather(ctx, jobID, forecastDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get job weather: %w", err)
	}

	if w.WorstHour == nil {
		if peak := weather.Peak(w.Hourly); peak != nil {
			worst := *peak
			w.WorstHour = &worst
			logger.Debug("Derived worst hour from hourly forecast",
				zap.String("job_id", jobID),
				zap.String("hour", worst.Time))
		}
	}

	return w, nil
}
