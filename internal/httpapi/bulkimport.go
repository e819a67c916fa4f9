package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/transparent-search/crawlcore/internal/model"
	"github.com/transparent-search/crawlcore/internal/store"
)

const maxBulkImportBody = 10 << 20 // 10MB, matching the teacher's upload cap

// handleBulkImport accepts a CSV, JSON, or newline-delimited TXT list of
// URLs, groups them by host, and creates or reuses one Session per host
// before seeding a pending Job for each URL (spec.md §6).
//
// @Summary Bulk import URLs
// @Param format query string false "csv|json|txt, defaults to Content-Type sniffing"
// @Success 200 {object} BulkImportResponse
// @Failure 400 {object} map[string]string
// @Security AdminToken
// @Router /import [post]
func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBulkImportBody)
	raw, err := io.ReadAll(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "request body too large or unreadable")
		return
	}

	urls, err := parseBulkImportURLs(raw, bulkImportFormat(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := BulkImportResponse{PerHost: map[string]int{}}
	sessionByHost := map[string]string{}

	for _, rawURL := range urls {
		parsed, err := url.Parse(rawURL)
		if err != nil || parsed.Host == "" {
			result.Skipped++
			continue
		}
		host := parsed.Hostname()

		if _, ok := sessionByHost[host]; !ok {
			id, created, err := s.resolveSessionForHost(r.Context(), host)
			if err != nil {
				result.Skipped++
				continue
			}
			sessionByHost[host] = id
			if created {
				result.SessionsCreated++
			}
		}
		sessionID := sessionByHost[host]

		if _, err := s.store.CreateJob(r.Context(), &model.Job{
			SessionID: sessionID,
			Domain:    host,
			URL:       rawURL,
			Status:    model.JobPending,
			Priority:  1,
			CreatedAt: time.Now(),
		}); err != nil {
			result.Skipped++
			continue
		}
		result.JobsCreated++
		result.PerHost[host]++
	}

	respondJSON(w, http.StatusOK, result)
}

// resolveSessionForHost reuses an existing session for host when one
// exists, otherwise starts a new one with the daemon's defaults. created
// reports whether a new Session was inserted.
func (s *Server) resolveSessionForHost(ctx context.Context, host string) (sessionID string, created bool, err error) {
	if existing, err := s.store.FindSessionByDomain(ctx, host); err == nil {
		return existing.ID, false, nil
	} else if err != store.ErrNotFound {
		return "", false, err
	}

	id, err := s.store.CreateSession(ctx, &model.Session{
		Domain:    host,
		Status:    model.SessionRunning,
		PageLimit: 1000,
		MaxDepth:  2,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func bulkImportFormat(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	switch {
	case strings.Contains(r.Header.Get("Content-Type"), "json"):
		return "json"
	case strings.Contains(r.Header.Get("Content-Type"), "csv"):
		return "csv"
	default:
		return "txt"
	}
}

// parseBulkImportURLs extracts a flat list of candidate URLs from one of
// the three supported bulk-import formats.
func parseBulkImportURLs(raw []byte, format string) ([]string, error) {
	switch format {
	case "json":
		var urls []string
		if err := json.Unmarshal(raw, &urls); err != nil {
			return nil, fmt.Errorf("invalid JSON URL list: %w", err)
		}
		return urls, nil
	case "csv":
		reader := csv.NewReader(bytes.NewReader(raw))
		reader.FieldsPerRecord = -1
		records, err := reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("invalid CSV: %w", err)
		}
		var urls []string
		for _, rec := range records {
			if len(rec) == 0 {
				continue
			}
			if candidate := strings.TrimSpace(rec[0]); candidate != "" && candidate != "url" {
				urls = append(urls, candidate)
			}
		}
		return urls, nil
	default:
		var urls []string
		scanner := bufio.NewScanner(bytes.NewReader(raw))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				urls = append(urls, line)
			}
		}
		return urls, scanner.Err()
	}
}
