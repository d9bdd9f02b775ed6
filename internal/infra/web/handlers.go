// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"social-scrape-platform/internal/domain"
	"social-scrape-platform/internal/domain/model"
)

type scrapeCreateRequest struct {
	ProjectID         string `json:"project_id"`
	URL               string `json:"url"`
	Kind              string `json:"kind,omitempty"`
	PreferPlatformAPI *bool  `json:"prefer_platform_api,omitempty"`
}

type scrapeResponse struct {
	ID               string           `json:"id"`
	ProjectID        string           `json:"project_id"`
	URL              string           `json:"url"`
	Platform         string           `json:"platform"`
	Status           string           `json:"status"`
	ExtractionMethod string           `json:"extraction_method"`
	CreditsDeducted  bool             `json:"credits_deducted"`
	Existing         bool             `json:"existing,omitempty"`
	Error            string           `json:"error,omitempty"`
	Content          *contentResponse `json:"content,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}

type contentResponse struct {
	Title            string   `json:"title,omitempty"`
	Description      string   `json:"description,omitempty"`
	Author           string   `json:"author,omitempty"`
	DurationSeconds  int      `json:"duration_seconds,omitempty"`
	Views            int64    `json:"views,omitempty"`
	Likes            int64    `json:"likes,omitempty"`
	Comments         int64    `json:"comments,omitempty"`
	ThumbnailURL     string   `json:"thumbnail_url,omitempty"`
	Hashtags         []string `json:"hashtags,omitempty"`
	IsImagePost      bool     `json:"is_image_post,omitempty"`
	Transcript       *string  `json:"transcript"`
	TranscriptSource string   `json:"transcript_source,omitempty"`
	Analysis         string   `json:"analysis,omitempty"`
}

type transcriptResponse struct {
	Transcript *string `json:"transcript"`
	Source     string  `json:"source,omitempty"`
}

type creditsResponse struct {
	PromotionalBalance int64            `json:"promotional_balance"`
	AllocationBalance  int64            `json:"allocation_balance"`
	AllocationCap      int64            `json:"allocation_cap"`
	Period             string           `json:"period"`
	PeriodUsed         int64            `json:"period_used"`
	UsedByOperation    map[string]int64 `json:"used_by_operation,omitempty"`
}

func (s *Server) handleCreateScrape(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req scrapeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" || req.URL == "" {
		writeJSONError(w, http.StatusBadRequest, "project_id and url are required")
		return
	}

	job, existing, err := s.scrapeUC.CreateScrape(ctx, ownerFromContext(ctx), req.ProjectID, req.URL, model.ScrapeJobKind(req.Kind), req.PreferPlatformAPI)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	writeJSON(w, status, toScrapeResponse(job, existing))
}

func (s *Server) handleGetScrape(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	job, err := s.scrapeUC.GetScrapeStatus(ctx, ownerFromContext(ctx), chi.URLParam(r, "jobID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScrapeResponse(job, false))
}

func (s *Server) handleFetchTranscript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	text, source, err := s.scrapeUC.FetchTranscript(ctx, ownerFromContext(ctx), chi.URLParam(r, "jobID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcriptResponse{Transcript: text, Source: source})
}

func (s *Server) handleGetCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	acc, usage, err := s.ledgerUC.Balance(ctx, ownerFromContext(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := creditsResponse{
		PromotionalBalance: acc.PromotionalBalance,
		AllocationBalance:  acc.AllocationBalance,
		AllocationCap:      acc.AllocationCap,
		Period:             model.PeriodKey(time.Now()),
	}
	if usage != nil {
		resp.PeriodUsed = usage.TotalUsed
		resp.UsedByOperation = usage.ByOperation
	}
	writeJSON(w, http.StatusOK, resp)
}

func toScrapeResponse(job *model.ScrapeJob, existing bool) scrapeResponse {
	resp := scrapeResponse{
		ID:               job.ID,
		ProjectID:        job.ProjectID,
		URL:              job.SourceURL,
		Platform:         string(job.Platform),
		Status:           string(job.Status),
		ExtractionMethod: string(job.ExtractionMethod),
		CreditsDeducted:  job.CreditsDeducted,
		Existing:         existing,
		Error:            job.ErrorDetail,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      job.CompletedAt,
	}
	// The staged payload is internal until the job completes.
	if job.Status == model.ScrapeJobStatusCompleted && job.Content != nil {
		c := job.Content
		resp.Content = &contentResponse{
			Title:            c.Title,
			Description:      c.Description,
			Author:           c.Author,
			DurationSeconds:  c.DurationSeconds,
			Views:            c.Metrics.Views,
			Likes:            c.Metrics.Likes,
			Comments:         c.Metrics.Comments,
			ThumbnailURL:     c.ThumbnailURL,
			Hashtags:         c.Hashtags,
			IsImagePost:      c.IsImagePost,
			Transcript:       c.Transcript,
			TranscriptSource: c.TranscriptSource,
			Analysis:         c.Analysis,
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinels onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrUnsupportedPlatform),
		errors.Is(err, domain.ErrInvalidArgument):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoContentFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrJobNotTerminal):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
