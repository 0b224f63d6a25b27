package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/assessor-cli/internal/export"
	"github.com/sells-group/assessor-cli/internal/fetcher"
	"github.com/sells-group/assessor-cli/internal/model"
	"github.com/sells-group/assessor-cli/internal/pipeline"
)

// Content types of export downloads.
const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// analysisEntry is a cached analysis and the files that failed to load.
type analysisEntry struct {
	Analysis   *pipeline.Analysis
	LoadErrors []*fetcher.LoadError
}

// server holds the read-only run options and the analysis cache. Cached
// analyses are immutable and shared between requests. When opts.Today is
// zero, each upload is aged against now().
type server struct {
	opts      pipeline.Options
	fetch     fetcher.Options
	cache     *cache.Cache
	maxUpload int64
	uploads   *rate.Limiter
	now       func() time.Time
}

func newServer(opts pipeline.Options, fetch fetcher.Options, ttl time.Duration, maxUploadMB int) *server {
	return &server{
		opts:      opts,
		fetch:     fetch,
		cache:     cache.New(ttl, 2*ttl),
		maxUpload: int64(maxUploadMB) << 20,
		now:       time.Now,
	}
}

// withUploadLimit caps analysis uploads at perMinute, with a burst of the
// same size. perMinute <= 0 leaves uploads unlimited.
func (s *server) withUploadLimit(perMinute int) *server {
	if perMinute > 0 {
		s.uploads = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return s
}

type ctxKey struct{}

// buildRouter wires the HTTP API.
func buildRouter(s *server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/analyses", s.handleCreate)
	r.Route("/analyses/{id}", func(r chi.Router) {
		r.Use(s.withAnalysis)
		r.Get("/", s.handleSummary)
		r.Get("/ranking", s.handleRanking)
		r.Get("/client-counts", s.handleClientCounts)
		r.Get("/clients", s.handleClients)
		r.Get("/categories", s.handleCategories)
		r.Get("/duplicates", s.handleDuplicates)
		r.Get("/conflicts", s.handleConflicts)
		r.Get("/demographics", s.handleDemographics)
		r.Get("/export", s.handleExport)
	})
	return r
}

// handleCreate runs the pipeline over a multipart upload. Each file field
// name is the period label of its spreadsheet. Identical uploads return the
// cached analysis.
func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if s.uploads != nil && !s.uploads.Allow() {
		w.Header().Set("Retry-After", "60")
		respondError(w, http.StatusTooManyRequests, "upload rate exceeded")
		return
	}

	tooLargeMsg := "upload exceeds " + strconv.FormatInt(s.maxUpload>>20, 10) + " MB"
	if r.ContentLength > s.maxUpload {
		respondError(w, http.StatusRequestEntityTooLarge, tooLargeMsg)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, tooLargeMsg)
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	sources, err := uploadSources(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(sources) == 0 {
		respondError(w, http.StatusBadRequest, "no spreadsheets uploaded")
		return
	}

	opts := s.opts
	if opts.Today.IsZero() {
		opts.Today = s.now()
	}

	// Ages depend on the run date, so the same upload on another day is a
	// new analysis.
	contentKey := "content:" + contentHash(sources) + ":" + opts.Today.Format("2006-01-02")
	if id, ok := s.cache.Get(contentKey); ok {
		if entry, ok := s.lookup(id.(string)); ok {
			zap.L().Debug("serve: analysis cache hit", zap.String("run_id", entry.Analysis.RunID))
			respondJSON(w, http.StatusOK, s.summary(entry, nil, true))
			return
		}
	}

	batches, loadErrs, err := fetcher.LoadBatches(r.Context(), sources, s.fetch)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "upload cancelled")
		return
	}

	a, err := pipeline.Run(batches, opts)
	if errors.Is(err, pipeline.ErrEmptyInput) {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  err.Error(),
			"issues": newIssues(a, loadErrs),
		})
		return
	}
	if err != nil {
		zap.L().Error("serve: pipeline run failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	entry := &analysisEntry{Analysis: a, LoadErrors: loadErrs}
	s.cache.SetDefault("analysis:"+a.RunID, entry)
	s.cache.SetDefault(contentKey, a.RunID)

	respondJSON(w, http.StatusCreated, s.summary(entry, nil, false))
}

// uploadSources reads every uploaded file into memory, in period order.
func uploadSources(r *http.Request) ([]fetcher.Source, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	periods := make([]model.Period, 0, len(r.MultipartForm.File))
	for label := range r.MultipartForm.File {
		periods = append(periods, model.ParsePeriod(label))
	}

	var sources []fetcher.Source
	for _, p := range model.NewPeriodSet(periods...).Periods() {
		headers := r.MultipartForm.File[p.Label]
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			return nil, eris.Wrapf(err, "open upload %s", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close() //nolint:errcheck
		if err != nil {
			return nil, eris.Wrapf(err, "read upload %s", fh.Filename)
		}
		sources = append(sources, fetcher.Source{Period: p, Name: filepath.Base(fh.Filename), Data: data})
	}
	return sources, nil
}

// contentHash identifies an upload by period labels, file types and bytes.
func contentHash(sources []fetcher.Source) string {
	sorted := make([]fetcher.Source, len(sources))
	copy(sorted, sources)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Period.Label < sorted[j].Period.Label })

	h := sha256.New()
	for _, src := range sorted {
		_, _ = io.WriteString(h, src.Period.Label)
		_, _ = h.Write([]byte{0})
		_, _ = io.WriteString(h, filepath.Ext(src.Name))
		_, _ = h.Write([]byte{0})
		_, _ = io.WriteString(h, strconv.Itoa(len(src.Data)))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(src.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *server) lookup(id string) (*analysisEntry, bool) {
	v, ok := s.cache.Get("analysis:" + id)
	if !ok {
		return nil, false
	}
	return v.(*analysisEntry), true
}

// withAnalysis loads the analysis named in the URL into the request context.
func (s *server) withAnalysis(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry, ok := s.lookup(chi.URLParam(r, "id"))
		if !ok {
			respondError(w, http.StatusNotFound, "analysis not found or expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, entry)))
	})
}

func entryFrom(r *http.Request) *analysisEntry {
	return r.Context().Value(ctxKey{}).(*analysisEntry)
}

// querySelection reads repeated ?period= parameters.
func querySelection(r *http.Request) model.Selection {
	return model.NewSelection(r.URL.Query()["period"]...)
}

// queryAdvisor resolves ?advisor= to an advisor key, writing the error
// response when it cannot.
func queryAdvisor(w http.ResponseWriter, r *http.Request, a *pipeline.Analysis) (string, bool) {
	ref := r.URL.Query().Get("advisor")
	if ref == "" {
		respondError(w, http.StatusBadRequest, "advisor is required")
		return "", false
	}
	key, err := a.FindAdvisor(ref)
	switch {
	case pipeline.IsAmbiguousAdvisor(err):
		respondError(w, http.StatusConflict, err.Error())
		return "", false
	case err != nil:
		respondError(w, http.StatusNotFound, "advisor not found")
		return "", false
	}
	return key, true
}

type summaryResponse struct {
	Cached bool `json:"cached"`
	report
}

func (s *server) summary(entry *analysisEntry, sel model.Selection, cached bool) summaryResponse {
	return summaryResponse{
		Cached: cached,
		report: buildReport(entry.Analysis, entry.LoadErrors, sel, ""),
	}
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.summary(entryFrom(r), querySelection(r), true))
}

func (s *server) handleRanking(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, rankingRows(entryFrom(r).Analysis, querySelection(r)))
}

func (s *server) handleClientCounts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, entryFrom(r).Analysis.ClientCounts(querySelection(r)))
}

func (s *server) handleClients(w http.ResponseWriter, r *http.Request) {
	a := entryFrom(r).Analysis
	key, ok := queryAdvisor(w, r, a)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, a.Clients(key, querySelection(r)))
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	a := entryFrom(r).Analysis
	key, ok := queryAdvisor(w, r, a)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, a.Categories(key, querySelection(r)))
}

func (s *server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, entryFrom(r).Analysis.DuplicatesFor(querySelection(r)))
}

func (s *server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, entryFrom(r).Analysis.ConflictsFor(querySelection(r)))
}

func (s *server) handleDemographics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, entryFrom(r).Analysis.Demographics(querySelection(r)))
}

// handleExport streams the advisor or client table as a file download.
func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	a := entryFrom(r).Analysis
	q := r.URL.Query()

	formatName := q.Get("format")
	if formatName == "" {
		formatName = string(export.FormatXLSX)
	}
	f, err := export.ParseFormat(formatName)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sel := querySelection(r)
	labels := selectedLabels(a, sel)

	var (
		name  string
		write func(io.Writer) error
	)
	switch table := q.Get("table"); table {
	case "", "advisors":
		rows := a.Ranking(sel)
		name = export.AdvisorsFileName(labels, f)
		write = func(out io.Writer) error { return export.WriteAdvisors(out, f, rows, a.Schema.Categories) }
	case "clients":
		key, ok := queryAdvisor(w, r, a)
		if !ok {
			return
		}
		rows := a.Clients(key, sel)
		column := a.Schema.Categories[model.GrandTotal].Column
		name = export.ClientsFileName(advisorName(a, key), labels, f)
		write = func(out io.Writer) error { return export.WriteClients(out, f, rows, column) }
	default:
		respondError(w, http.StatusBadRequest, "table must be advisors or clients")
		return
	}

	contentType := contentTypeXLSX
	if f == export.FormatCSV {
		contentType = contentTypeCSV
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if err := write(w); err != nil {
		zap.L().Error("serve: export failed", zap.String("file", name), zap.Error(err))
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("serve: write response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
