package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

// GetJobWeather retrieves the hourly forecast for a job on a date
func (d *DB) GetJobWeather(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error) {
	w := model.JobWeather{JobID: jobID, ForecastDate: forecastDate}
	err := d.pool.QueryRow(ctx, `
		SELECT daily_high, daily_low, worst_hour, hourly
		FROM job_weather
		WHERE job_id = $1 AND forecast_date = $2::date
	`, jobID, forecastDate).Scan(&w.DailyHigh, &w.DailyLow, &w.WorstHour, &w.Hourly)
	if isNoRows(err) {
		return nil, db.NotFound("no weather for job %s on %s", jobID, forecastDate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job weather: %w", err)
	}
	return &w, nil
}
