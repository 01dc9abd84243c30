package api

import (
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/services"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

func handleContext(store services.ContextStore, cfg *config.Config, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContextRequest
		if err := decode(r, &req); err != nil {
			writeServiceError(w, r, logger, "context", err, backendIs500)
			return
		}

		vc, err := services.LoadContext(r.Context(), store, cfg, logger, req.Token)
		if err != nil {
			writeServiceError(w, r, logger, "context", err, backendIs500)
			return
		}

		render.JSON(w, r, ContextResponse{Context: vc})
	}
}

func handleSubmit(store services.SubmitStore, cfg *config.Config, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRequest
		if err := decode(r, &req); err != nil {
			writeServiceError(w, r, logger, "submit", err, backendIs400)
			return
		}

		result, err := services.SubmitVote(r.Context(), store, cfg, logger, services.SubmitVoteRequest{
			Token: req.Token,
			ItemKey: model.ItemKey{
				InternalJobID: req.InternalJobID,
				ForecastDate:  req.ForecastDate,
				LensID:        req.LensID,
			},
			VoteValue:    req.VoteValue,
			VoteReason:   req.VoteReason,
			DelayMinutes: req.DelayMinutes,
		})
		if err != nil {
			writeServiceError(w, r, logger, "submit", err, backendIs400)
			return
		}

		render.JSON(w, r, SubmitResponse{Result: result})
	}
}

func handleJobVotes(store services.JobVotesStore, cfg *config.Config, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JobVotesRequest
		if err := decode(r, &req); err != nil {
			writeServiceError(w, r, logger, "job-votes", err, backendIs400)
			return
		}

		key := model.ItemKey{InternalJobID: req.InternalJobID, ForecastDate: req.ForecastDate, LensID: req.LensID}
		votes, err := services.GetJobVotes(r.Context(), store, cfg, logger, req.Token, key)
		if err != nil {
			writeServiceError(w, r, logger, "job-votes", err, backendIs400)
			return
		}
		if votes == nil {
			votes = []model.JobVote{}
		}

		render.JSON(w, r, JobVotesResponse{Votes: votes})
	}
}

func handleJobWeather(store services.WeatherStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		weather, err := services.GetJobWeather(r.Context(), store, logger, q.Get("jobId"), q.Get("forecastDate"))
		if err != nil {
			writeServiceError(w, r, logger, "job-weather", err, backendIs500)
			return
		}

		render.JSON(w, r, JobWeatherResponse{Weather: weather})
	}
}

func handleResolve(store db.TokenStore, cfg *config.Config, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResolveRequest
		if err := decode(r, &req); err != nil {
			writeServiceError(w, r, logger, "resolve", err, backendIs500)
			return
		}

		voter, err := services.ResolveToken(r.Context(), store, cfg, logger, req.CampaignID, req.Token)
		if err != nil {
			writeServiceError(w, r, logger, "resolve", err, backendIs500)
			return
		}

		render.JSON(w, r, voter)
	}
}

func handleListAssignments(store services.AssignmentStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assignments, err := services.ListAssignments(r.Context(), store, logger, q.Get("campaignId"), q.Get("personId"))
		if err != nil {
			writeServiceError(w, r, logger, "assignments", err, backendIs500)
			return
		}
		if assignments == nil {
			assignments = []model.Assignment{}
		}

		render.JSON(w, r, AssignmentsResponse{Assignments: assignments})
	}
}

func handleSubmitAssignment(store services.AssignmentStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitAssignmentRequest
		if err := decode(r, &req); err != nil {
			writeServiceError(w, r, logger, "assignments/submit", err, backendIs500)
			return
		}

		assignment, err := services.SubmitAssignment(r.Context(), store, logger, services.SubmitAssignmentRequest{
			AssignmentID: req.AssignmentID,
			Vote:         req.Vote,
			DelayMinutes: req.DelayMinutes,
			Comment:      req.Comment,
		})
		if err != nil {
			writeServiceError(w, r, logger, "assignments/submit", err, backendIs500)
			return
		}

		render.JSON(w, r, AssignmentResponse{Assignment: assignment})
	}
}

func handleCompleteAssignments(store services.AssignmentStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CompleteAssignmentsRequest
		if err := decode(r, &req); err != nil {
			writeServiceError(w, r, logger, "assignments/complete", err, backendIs500)
			return
		}

		if err := services.CompleteAssignments(r.Context(), store, logger, req.PersonID); err != nil {
			writeServiceError(w, r, logger, "assignments/complete", err, backendIs500)
			return
		}

		render.JSON(w, r, OKResponse{OK: true})
	}
}
