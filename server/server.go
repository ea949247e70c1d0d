package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"ebay-sales-analytics/models"
	"ebay-sales-analytics/services"
	"ebay-sales-analytics/storage"
	"ebay-sales-analytics/utils"
)

// maxUploadMemory caps the multipart form held in memory; larger files
// spill to temporary files.
var maxUploadMemory int64 = 32 << 20

// Server exposes the pipeline over HTTP. It holds the dataset of the most
// recent successful upload.
type Server struct {
	pipeline *services.Pipeline
	insights *services.InsightService
	topN     int
	logger   *utils.Logger

	mu      sync.RWMutex
	current *models.UploadResult
}

func New(pipeline *services.Pipeline, insights *services.InsightService, topN int, logger *utils.Logger) *Server {
	return &Server{
		pipeline: pipeline,
		insights: insights,
		topN:     topN,
		logger:   logger,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/uploads", s.handleUpload)
		r.Delete("/uploads", s.handleReset)
		r.Get("/records", s.handleRecords)
		r.Get("/products", s.handleProducts)
		r.Get("/summary", s.handleSummary)
		r.Get("/export/records.csv", s.handleExportRecords)
		r.Get("/export/products.csv", s.handleExportProducts)
	})
	return r
}

// Run serves the API on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("[server] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleUpload replaces the current dataset with the files in the "files"
// form field.
// POST /api/uploads
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with files")
		return
	}
	defer r.MultipartForm.RemoveAll()
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	sources := make([]models.Source, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("open %s: %v", h.Filename, err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("read %s: %v", h.Filename, err))
			return
		}
		sources = append(sources, models.Source{Name: h.Filename, Content: content})
	}

	res, err := s.pipeline.Upload(r.Context(), sources)
	if errors.Is(err, services.ErrNoValidData) {
		writeJSON(w, http.StatusUnprocessableEntity, uploadResponse(res, err))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	s.current = res
	s.mu.Unlock()

	s.logger.Info("[server] Upload %s: %d records from %d files", res.UploadID, len(res.Dataset), len(sources))
	writeJSON(w, http.StatusCreated, uploadResponse(res, nil))
}

// DELETE /api/uploads
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.pipeline.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/records
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(ds),
		"records": ds,
	})
}

// GET /api/products
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"names": services.Products(ds),
		"stats": services.ProductStats(ds),
	})
}

// GET /api/summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.filtered(w, r)
	if !ok {
		return
	}

	topN := s.topN
	if v := r.URL.Query().Get("top_n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "top_n must be a positive integer")
			return
		}
		topN = n
	}
	writeJSON(w, http.StatusOK, s.insights.Generate(ds, topN))
}

// GET /api/export/records.csv
func (s *Server) handleExportRecords(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.filtered(w, r)
	if !ok {
		return
	}
	setCSVHeaders(w, "records.csv")
	if err := storage.NewCSVWriter(w).WriteRecords(ds); err != nil {
		s.logger.Error("[server] Export records failed: %v", err)
	}
}

// GET /api/export/products.csv
func (s *Server) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.filtered(w, r)
	if !ok {
		return
	}
	setCSVHeaders(w, "products.csv")
	if err := storage.NewCSVWriter(w).WriteProducts(services.ProductStats(ds)); err != nil {
		s.logger.Error("[server] Export products failed: %v", err)
	}
}

// filtered applies the request's filter to the current dataset. It writes
// the error response itself and reports false when the handler should stop.
func (s *Server) filtered(w http.ResponseWriter, r *http.Request) (models.Dataset, bool) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current == nil {
		writeError(w, http.StatusNotFound, "no dataset uploaded")
		return nil, false
	}

	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return f.Apply(current.Dataset), true
}

// parseFilter reads filter criteria from query parameters. Categories may
// repeat or be comma separated.
func parseFilter(r *http.Request) (services.Filter, error) {
	q := r.URL.Query()
	f := services.Filter{Product: q.Get("product")}

	for _, raw := range q["category"] {
		for _, name := range strings.Split(raw, ",") {
			c, ok := models.ParseCategory(strings.TrimSpace(name))
			if !ok {
				return f, fmt.Errorf("unknown category %q", name)
			}
			f.Categories = append(f.Categories, c)
		}
	}

	var err error
	if f.MinTotalSales, err = intParam(q.Get("min_total_sales")); err != nil {
		return f, fmt.Errorf("min_total_sales: %w", err)
	}
	if f.MinJanSales, err = intParam(q.Get("min_jan_sales")); err != nil {
		return f, fmt.Errorf("min_jan_sales: %w", err)
	}
	if f.MinPrice, err = decimalParam(q.Get("min_price")); err != nil {
		return f, fmt.Errorf("min_price: %w", err)
	}
	if f.MaxPrice, err = decimalParam(q.Get("max_price")); err != nil {
		return f, fmt.Errorf("max_price: %w", err)
	}
	if v := q.Get("checked_within"); v != "" {
		if f.CheckedWithin, err = time.ParseDuration(v); err != nil {
			return f, fmt.Errorf("checked_within: %w", err)
		}
	}
	return f, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func decimalParam(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func uploadResponse(res *models.UploadResult, err error) map[string]interface{} {
	out := map[string]interface{}{
		"upload_id": res.UploadID,
		"merged":    res.Merged,
		"records":   len(res.Dataset),
		"sources":   res.Sources,
	}
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}

func setCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
