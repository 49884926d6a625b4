package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"tisops-insights-go/internal/actionable"
	"tisops-insights-go/internal/daterange"
	"tisops-insights-go/internal/logger"
	"tisops-insights-go/internal/metrics"
	"tisops-insights-go/internal/pipeline"
	"tisops-insights-go/internal/processor"
	"tisops-insights-go/internal/store"
	"tisops-insights-go/internal/types"
)

const (
	EndPointHealth      = "/healthz"
	EndPointMetrics     = "/metrics"
	EndPointReports     = "/reports"
	EndPointReport      = "/reports/:name"
	EndPointExport      = "/reports/export"
	EndPointImport      = "/incidents/import"
	EndPointRegistry    = "/registries/:kind"
	EndPointRegistryRow = "/registries/:kind/:id"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Registries is the registry CRUD surface. *store.Store satisfies it.
type Registries interface {
	ListRegistryEntries(ctx context.Context, kind types.RegistryKind) ([]types.RegistryEntry, error)
	InsertRegistryEntry(ctx context.Context, e types.RegistryEntry) (types.RegistryEntry, error)
	SetRegistryEntryActive(ctx context.Context, kind types.RegistryKind, id int64, active bool) error
}

type Server struct {
	svc        *processor.Service
	registries Registries
	log        *logger.Logger
	maxUpload  int64
}

func New(svc *processor.Service, registries Registries, maxUploadMB int) *Server {
	return &Server{
		svc:        svc,
		registries: registries,
		log:        logger.New(),
		maxUpload:  int64(maxUploadMB) << 20,
	}
}

// Router wires every endpoint onto a fresh engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET(EndPointHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))

	r.GET(EndPointReports, s.allReports)
	r.GET(EndPointExport, s.exportReports)
	r.GET(EndPointReport, s.report)
	r.POST(EndPointImport, s.importIncidents)

	r.GET(EndPointRegistry, s.listRegistry)
	r.POST(EndPointRegistry, s.createRegistryEntry)
	r.PATCH(EndPointRegistryRow, s.patchRegistryEntry)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		entry := s.log.WithRequest(c.Request)
		c.Header(logger.RequestIDHeader, logger.RequestID(c.Request))
		c.Set("log", entry)
		c.Next()

		entry = entry.WithFields(logrus.Fields{
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Info("request served")
	}
}

func reqLog(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get("log"); ok {
		if e, ok := v.(*logrus.Entry); ok {
			return e
		}
	}
	return logger.New().WithRequest(c.Request)
}

// fail maps caller errors to 4xx. Anything else is logged and hidden behind a 500.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, daterange.ErrInvalidFilter):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrInvalidEntry):
		status = http.StatusBadRequest
	case store.IsNotFound(err):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		reqLog(c).WithError(err).Error("handler error")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) query(c *gin.Context) (processor.Query, error) {
	return s.svc.ParseQuery(
		c.Query("application"),
		c.Query("month"),
		c.Query("startDate"),
		c.Query("endDate"),
	)
}

// withMeta flattens a report and adds the request meta next to its fields.
func withMeta(report any, meta processor.Meta) (map[string]any, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	out["meta"] = meta
	return out, nil
}

func (s *Server) report(c *gin.Context) {
	name := c.Param("name")
	if !slices.Contains(pipeline.ReportNames, name) {
		metrics.ReportRequestsTotal.WithLabelValues("unknown", "not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown report %q", name), "reports": pipeline.ReportNames})
		return
	}
	q, err := s.query(c)
	if err != nil {
		metrics.ReportRequestsTotal.WithLabelValues(name, "invalid").Inc()
		fail(c, err)
		return
	}
	out, meta, err := s.svc.Report(c.Request.Context(), name, q)
	if err != nil {
		metrics.ReportRequestsTotal.WithLabelValues(name, "error").Inc()
		fail(c, err)
		return
	}
	body, err := withMeta(out, meta)
	if err != nil {
		fail(c, err)
		return
	}
	metrics.ReportRequestsTotal.WithLabelValues(name, "ok").Inc()
	c.JSON(http.StatusOK, body)
}

func (s *Server) allReports(c *gin.Context) {
	q, err := s.query(c)
	if err != nil {
		fail(c, err)
		return
	}
	reports, meta, err := s.svc.All(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta":       meta,
		"reports":    reports,
		"actionCard": actionable.Generate(reports.StabilityIndicators, reports.L3TicketsByStatus),
	})
}

func (s *Server) exportReports(c *gin.Context) {
	q, err := s.query(c)
	if err != nil {
		fail(c, err)
		return
	}
	// buffer first so a failure can still become a JSON error
	var buf bytes.Buffer
	meta, err := s.svc.Export(c.Request.Context(), q, &buf)
	if err != nil {
		fail(c, err)
		return
	}
	filename := fmt.Sprintf("incident-report-%s_%s.xlsx", meta.StartDate, meta.EndDate)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) importIncidents(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	fh, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	res, err := s.svc.Import(c.Request.Context(), f)
	if errors.Is(err, processor.ErrBadWorkbook) {
		reqLog(c).WithError(err).WithField("filename", fh.Filename).Warn("import rejected")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func registryKind(c *gin.Context) (types.RegistryKind, bool) {
	kind, ok := types.ParseRegistryKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown registry %q", c.Param("kind")), "kinds": types.RegistryKinds})
	}
	return kind, ok
}

func (s *Server) listRegistry(c *gin.Context) {
	kind, ok := registryKind(c)
	if !ok {
		return
	}
	entries, err := s.registries.ListRegistryEntries(c.Request.Context(), kind)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "data": entries})
}

type createEntryRequest struct {
	MatchKey     string `json:"matchKey" binding:"required"`
	DisplayValue string `json:"displayValue" binding:"required"`
	Priority     int    `json:"priority"`
	IsActive     *bool  `json:"isActive"`
}

func (s *Server) createRegistryEntry(c *gin.Context) {
	kind, ok := registryKind(c)
	if !ok {
		return
	}
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry, err := s.registries.InsertRegistryEntry(c.Request.Context(), types.RegistryEntry{
		Kind:         kind,
		MatchKey:     req.MatchKey,
		DisplayValue: req.DisplayValue,
		Priority:     req.Priority,
		IsActive:     req.IsActive == nil || *req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type patchEntryRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (s *Server) patchRegistryEntry(c *gin.Context) {
	kind, ok := registryKind(c)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}
	var req patchEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.registries.SetRegistryEntryActive(c.Request.Context(), kind, id, *req.IsActive); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "kind": kind, "isActive": *req.IsActive})
}
