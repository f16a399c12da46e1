package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/ingest"
	"location-reconciler/internal/jobs"
	"location-reconciler/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// JobQueue interface for dependency injection
type JobQueue interface {
	Submit(jobs.Task) (jobs.Job, <-chan jobs.Outcome, error)
	Get(string) (jobs.Job, error)
	List() []jobs.Job
}

// JobsConfig holds the defaults applied to submitted jobs.
type JobsConfig struct {
	UploadDir             string
	MaxUploadBytes        int64
	MatchThresholdMeters  float64
	DedupeThresholdMeters float64
	Deduplicate           bool
	DateRange             string
	GeoJSON               bool
}

// JobsHandler handles pipeline job submission and retrieval
type JobsHandler struct {
	queue JobQueue
	cfg   JobsConfig
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(queue JobQueue, cfg JobsConfig) *JobsHandler {
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	return &JobsHandler{queue: queue, cfg: cfg}
}

var (
	rankedExtensions   = []string{".csv", ".xlsx"}
	planningExtensions = []string{".kmz", ".kml"}
)

// Create handles POST /jobs requests
//
//	@Summary	Submit a reconciliation job
//	@Tags		jobs
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		ranked		formData	file	true	"Ranked-metrics export (.csv or .xlsx), repeatable"
//	@Param		planning	formData	file	false	"Planning export (.kmz or .kml)"
//	@Param		date_range	formData	string	false	"Reporting period"
//	@Param		threshold	formData	number	false	"Match threshold in meters"
//	@Success	202			{object}	jobs.Job
//	@Failure	400
//	@Failure	503
//	@Router		/jobs [post]
func (h *JobsHandler) Create(c *gin.Context) {
	if h.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	ranked := form.File["ranked"]
	if len(ranked) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one 'ranked' file is required"})
		return
	}
	for _, fh := range ranked {
		if !hasExtension(fh.Filename, rankedExtensions) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported ranked file %q", fh.Filename)})
			return
		}
	}
	var planning *multipart.FileHeader
	if files := form.File["planning"]; len(files) > 0 {
		planning = files[0]
		if !hasExtension(planning.Filename, planningExtensions) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported planning file %q", planning.Filename)})
			return
		}
	}

	opts := pipeline.Options{
		MatchThresholdMeters:  h.cfg.MatchThresholdMeters,
		DedupeThresholdMeters: h.cfg.DedupeThresholdMeters,
		Deduplicate:           h.cfg.Deduplicate,
		GeoJSON:               h.cfg.GeoJSON,
	}
	if v := strings.TrimSpace(c.PostForm("threshold")); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil || threshold <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
			return
		}
		opts.MatchThresholdMeters = threshold
	}
	opts.DateRange = h.dateRange(c.PostForm("date_range"), ranked)

	id := uuid.NewString()
	dir := filepath.Join(h.cfg.UploadDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().Err(err).Msg("cannot create upload directory")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	in := pipeline.Inputs{}
	for i, fh := range ranked {
		// Uploads may share a base name; the index keeps them apart.
		dst := filepath.Join(dir, fmt.Sprintf("%d_%s", i, filepath.Base(fh.Filename)))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			log.Error().Err(err).Str("file", fh.Filename).Msg("cannot save upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		in.RankedPaths = append(in.RankedPaths, dst)
	}
	if planning != nil {
		dst := filepath.Join(dir, filepath.Base(planning.Filename))
		if err := c.SaveUploadedFile(planning, dst); err != nil {
			log.Error().Err(err).Str("file", planning.Filename).Msg("cannot save upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		in.PlanningPath = dst
	}

	job, _, err := h.queue.Submit(jobs.Task{ID: id, Inputs: in, Options: opts})
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrQueueClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("cannot submit job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// List handles GET /jobs requests
//
//	@Summary	List jobs, newest first
//	@Tags		jobs
//	@Produce	json
//	@Success	200	{array}	jobs.Job
//	@Router		/jobs [get]
func (h *JobsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.List())
}

// Get handles GET /jobs/:id requests
//
//	@Summary	Get a job
//	@Tags		jobs
//	@Produce	json
//	@Param		id	path		string	true	"Job ID"
//	@Success	200	{object}	jobs.Job
//	@Failure	404
//	@Router		/jobs/{id} [get]
func (h *JobsHandler) Get(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

// File handles GET /jobs/:id/files/:name requests
//
//	@Summary	Download a job output file
//	@Tags		jobs
//	@Produce	octet-stream
//	@Param		id		path	string	true	"Job ID"
//	@Param		name	path	string	true	"File name"
//	@Success	200
//	@Failure	404
//	@Failure	409
//	@Router		/jobs/{id}/files/{name} [get]
func (h *JobsHandler) File(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	if job.Status != jobs.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("job is %s", job.Status)})
		return
	}

	name := c.Param("name")
	if !slices.Contains(job.Files, name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	c.FileAttachment(filepath.Join(job.OutputDir, name), name)
}

func (h *JobsHandler) lookup(c *gin.Context) (jobs.Job, bool) {
	job, err := h.queue.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, apperrors.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return jobs.Job{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return jobs.Job{}, false
	}
	return job, true
}

// dateRange prefers the form value, then the period carried by the upload
// names, then the configured default.
func (h *JobsHandler) dateRange(formValue string, ranked []*multipart.FileHeader) string {
	if v := strings.TrimSpace(formValue); v != "" {
		return v
	}
	names := make([]string, len(ranked))
	for i, fh := range ranked {
		names[i] = fh.Filename
	}
	if dr, ok := ingest.FindDateRange(names...); ok {
		return dr
	}
	return h.cfg.DateRange
}

func hasExtension(name string, allowed []string) bool {
	return slices.Contains(allowed, strings.ToLower(filepath.Ext(name)))
}
