package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-search-reporter/internal/apperrors"
	"github.com/jrsteele09/go-search-reporter/searchconsole"
	"github.com/jrsteele09/go-search-reporter/sessions"
)

// ProtectedReportHandler runs a Search Analytics query with the caller's
// access token. Defaults come from configuration; start, end, dimension and
// limit query parameters override them. A token rejected by the API is
// refreshed with the stored refresh token and the query retried exactly once.
func (s *Server) ProtectedReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromContext(r.Context())
		if !ok {
			writeJSONError(w, "unauthenticated", "Could not validate credentials.", http.StatusUnauthorized)
			return
		}

		query := s.reportQuery(r)

		rows, err := s.reports.Query(r.Context(), identity.AccessToken, query)

		var rejected *searchconsole.RejectedError
		if errors.As(err, &rejected) && rejected.TokenExpired() {
			refreshed, refreshErr := s.flow.Refresh(r.Context(), identity)
			if refreshErr != nil {
				log.Err(refreshErr).Msg("token refresh failed")
				writeJSONError(w, "unauthenticated", "Access token expired and could not be refreshed.", http.StatusUnauthorized)
				return
			}

			if session, sessionOK := r.Context().Value(ContextKeySession).(sessions.Session); sessionOK {
				if putErr := s.store.PutIdentity(session.ID, refreshed); putErr != nil {
					log.Err(putErr).Msg("storing refreshed identity failed")
				}
			}

			rows, err = s.reports.Query(r.Context(), refreshed.AccessToken, query)
		}

		if err != nil {
			status := http.StatusBadGateway
			switch {
			case errors.Is(err, apperrors.ErrUpstreamUnavailable):
				log.Err(err).Msg("report API unavailable")
			case errors.Is(err, apperrors.ErrUpstreamRejected):
				log.Err(err).Msg("report API rejected request")
			case errors.Is(err, apperrors.ErrMalformedResponse):
				log.Err(err).Msg("report API returned malformed payload")
			default:
				log.Err(err).Msg("report query failed")
				status = http.StatusInternalServerError
			}
			writeJSONError(w, "upstream_error", err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"siteUrl": query.SiteURL,
			"rows":    rows,
		})
	}
}

// reportQuery builds the query from config defaults plus request overrides.
func (s *Server) reportQuery(r *http.Request) searchconsole.QueryRequest {
	query := searchconsole.QueryRequest{
		SiteURL:    s.config.ReportSiteURL,
		StartDate:  s.config.ReportStartDate,
		EndDate:    s.config.ReportEndDate,
		Dimensions: []string{s.config.ReportDimension},
		RowLimit:   s.config.ReportRowLimit,
	}

	params := r.URL.Query()
	if v := params.Get("start"); v != "" {
		query.StartDate = v
	}
	if v := params.Get("end"); v != "" {
		query.EndDate = v
	}
	if v := params.Get("dimension"); v != "" {
		query.Dimensions = []string{v}
	}
	if v := params.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 {
			query.RowLimit = limit
		}
	}
	return query
}
