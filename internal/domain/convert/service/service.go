// Package service provides the conversion orchestration logic.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
	"github.com/autoorder/autoorder/internal/domain/convert/parser"
	"github.com/autoorder/autoorder/internal/domain/convert/template"
	"github.com/autoorder/autoorder/internal/domain/convert/workbook"
	"github.com/autoorder/autoorder/pkg/storage"
)

// UploadResult is the preview returned after analyzing a source/template
// pair, before any mapping has been chosen.
type UploadResult struct {
	SourceFileID    string        `json:"source_file_id"`
	TemplateFileID  string        `json:"template_file_id"`
	SourceHeaders   []string      `json:"source_headers"`
	TemplateHeaders []string      `json:"template_headers"`
	SampleRows      []parser.Row  `json:"sample_rows"`
	SuggestedSpec   *mapping.Spec `json:"suggested_mapping,omitempty"`
	RowCount        int           `json:"row_count"`
}

// ConvertResult is the outcome of a full conversion.
type ConvertResult struct {
	FileName          string                      `json:"file_name"`
	DisplayName       string                      `json:"display_name"`
	ProcessedRowCount int                         `json:"processed_row_count"`
	TotalRowCount     int                         `json:"total_row_count"`
	PerRowErrors      []workbook.RowCoercionError `json:"per_row_errors,omitempty"`
	OutputBytes       []byte                      `json:"-"`
}

const samplePreviewRows = 5

// ConvertService orchestrates sniffing, parsing, mapping resolution and
// workbook building.
type ConvertService struct {
	reader    *parser.Reader
	extractor *template.Extractor
	builder   *workbook.Builder
	store     storage.Storage
	logger    *slog.Logger
	tracer    trace.Tracer

	conversionsTotal   *prometheus.CounterVec
	conversionRows     prometheus.Counter
	conversionDuration prometheus.Histogram
}

// NewConvertService creates a conversion service. The storage backend is
// optional; without it converted workbooks are returned inline only.
func NewConvertService(reader *parser.Reader, extractor *template.Extractor, store storage.Storage, logger *slog.Logger) *ConvertService {
	s := &ConvertService{
		reader:    reader,
		extractor: extractor,
		builder:   workbook.NewBuilder(),
		store:     store,
		logger:    logger,
		tracer:    otel.Tracer("convert"),

		conversionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoorder_conversions_total",
			Help: "Conversions attempted, by outcome.",
		}, []string{"outcome"}),
		conversionRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoorder_conversion_rows_total",
			Help: "Data rows written into generated purchase orders.",
		}),
		conversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autoorder_conversion_duration_seconds",
			Help:    "Wall time of full conversions.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	return s
}

// Register adds the service metrics to a Prometheus registry.
func (s *ConvertService) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{s.conversionsTotal, s.conversionRows, s.conversionDuration} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register conversion metrics: %w", err)
		}
	}
	return nil
}

// Analyze parses a source/template pair and returns headers, a sample of
// the source rows and a suggested mapping. Both files are persisted so a
// later Generate call can reference them by ID.
func (s *ConvertService) Analyze(ctx context.Context, sourceName string, sourceData []byte, templateName string, templateData []byte) (*UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "convert.Analyze")
	defer span.End()

	table, err := s.reader.Read(sourceData, ext(sourceName))
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}

	templateHeaders, err := s.extractor.ExtractHeaders(templateData)
	if err != nil {
		return nil, fmt.Errorf("read template file: %w", err)
	}

	result := &UploadResult{
		SourceHeaders:   table.Headers,
		TemplateHeaders: templateHeaders,
		RowCount:        len(table.Rows),
		SuggestedSpec:   mapping.DefaultSpec(table.Headers),
	}
	for i, row := range table.Rows {
		if i >= samplePreviewRows {
			break
		}
		result.SampleRows = append(result.SampleRows, row)
	}

	if s.store != nil {
		src, err := s.store.Upload(ctx, sourceName, contentTypeFor(sourceName), bytes.NewReader(sourceData))
		if err != nil {
			return nil, fmt.Errorf("store source file: %w", err)
		}
		tpl, err := s.store.Upload(ctx, templateName, contentTypeFor(templateName), bytes.NewReader(templateData))
		if err != nil {
			return nil, fmt.Errorf("store template file: %w", err)
		}
		result.SourceFileID = src.ID.String()
		result.TemplateFileID = tpl.ID.String()
	}

	s.logger.Info("analyzed upload",
		"source", sourceName,
		"rows", result.RowCount,
		"source_headers", len(result.SourceHeaders),
		"template_headers", len(templateHeaders))
	span.SetAttributes(attribute.Int("rows", result.RowCount))

	return result, nil
}

// Convert runs the full pipeline over raw bytes: parse the source, extract
// the template schema, resolve every row and build the output workbook. An
// empty or nil spec falls back to the keyword-derived default mapping.
func (s *ConvertService) Convert(ctx context.Context, sourceName string, sourceData []byte, templateData []byte, spec *mapping.Spec, fixed mapping.FixedValues) (*ConvertResult, error) {
	ctx, span := s.tracer.Start(ctx, "convert.Convert")
	defer span.End()

	start := time.Now()

	table, err := s.reader.Read(sourceData, ext(sourceName))
	if err != nil {
		s.conversionsTotal.WithLabelValues("unreadable").Inc()
		return nil, fmt.Errorf("read source file: %w", err)
	}

	templateHeaders, err := s.extractor.ExtractHeaders(templateData)
	if err != nil {
		s.conversionsTotal.WithLabelValues("bad_template").Inc()
		return nil, fmt.Errorf("read template file: %w", err)
	}

	if spec == nil || spec.Len() == 0 {
		spec = mapping.DefaultSpec(table.Headers)
	}

	resolver := mapping.NewResolver(templateHeaders)
	rows := make([]mapping.TransformedRow, 0, len(table.Rows))
	for _, row := range table.Rows {
		rows = append(rows, resolver.Resolve(spec, fixed, row))
	}

	return s.finish(ctx, span, templateHeaders, rows, start)
}

// ConvertDirect builds a purchase order from hand-entered rows instead of
// an uploaded source file. The row keys are treated as already-resolved
// source fields and mapped by the default keyword spec.
func (s *ConvertService) ConvertDirect(ctx context.Context, templateData []byte, sourceRows []parser.Row, fixed mapping.FixedValues) (*ConvertResult, error) {
	ctx, span := s.tracer.Start(ctx, "convert.ConvertDirect")
	defer span.End()

	start := time.Now()

	templateHeaders, err := s.extractor.ExtractHeaders(templateData)
	if err != nil {
		s.conversionsTotal.WithLabelValues("bad_template").Inc()
		return nil, fmt.Errorf("read template file: %w", err)
	}

	headers := headerUnion(sourceRows)
	spec := mapping.DefaultSpec(headers)
	resolver := mapping.NewResolver(templateHeaders)

	rows := make([]mapping.TransformedRow, 0, len(sourceRows))
	for _, row := range sourceRows {
		rows = append(rows, resolver.Resolve(spec, fixed, row))
	}

	return s.finish(ctx, span, templateHeaders, rows, start)
}

func (s *ConvertService) finish(ctx context.Context, span trace.Span, templateHeaders []string, rows []mapping.TransformedRow, start time.Time) (*ConvertResult, error) {
	built, err := s.builder.Build(templateHeaders, rows)
	if err != nil {
		s.conversionsTotal.WithLabelValues("build_failed").Inc()
		return nil, fmt.Errorf("build workbook: %w", err)
	}

	result := &ConvertResult{
		FileName:          built.FileName,
		DisplayName:       built.DisplayName,
		ProcessedRowCount: built.ProcessedRowCount,
		TotalRowCount:     built.TotalRowCount,
		PerRowErrors:      built.PerRowErrors,
		OutputBytes:       built.OutputBytes,
	}

	if s.store != nil {
		info, err := s.store.Upload(ctx, built.FileName,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			bytes.NewReader(built.OutputBytes))
		if err != nil {
			s.conversionsTotal.WithLabelValues("store_failed").Inc()
			return nil, fmt.Errorf("store generated workbook: %w", err)
		}
		result.FileName = info.Path
	}

	s.conversionsTotal.WithLabelValues("ok").Inc()
	s.conversionRows.Add(float64(result.ProcessedRowCount))
	s.conversionDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("rows.processed", result.ProcessedRowCount),
		attribute.Int("rows.total", result.TotalRowCount),
	)

	if len(result.PerRowErrors) > 0 {
		s.logger.Warn("conversion finished with skipped rows",
			"processed", result.ProcessedRowCount,
			"total", result.TotalRowCount,
			"skipped", len(result.PerRowErrors))
	} else {
		s.logger.Info("conversion finished",
			"processed", result.ProcessedRowCount,
			"file", result.FileName,
			"duration", time.Since(start))
	}

	return result, nil
}

// ConvertStored runs Convert over files previously persisted by Analyze,
// referenced by their storage IDs.
func (s *ConvertService) ConvertStored(ctx context.Context, sourceID, templateID uuid.UUID, spec *mapping.Spec, fixed mapping.FixedValues) (*ConvertResult, error) {
	sourceName, sourceData, err := s.loadStored(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load source file: %w", err)
	}
	_, templateData, err := s.loadStored(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template file: %w", err)
	}
	return s.Convert(ctx, sourceName, sourceData, templateData, spec, fixed)
}

// ConvertDirectStored runs ConvertDirect against a stored template.
func (s *ConvertService) ConvertDirectStored(ctx context.Context, templateID uuid.UUID, sourceRows []parser.Row, fixed mapping.FixedValues) (*ConvertResult, error) {
	_, templateData, err := s.loadStored(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template file: %w", err)
	}
	return s.ConvertDirect(ctx, templateData, sourceRows, fixed)
}

func (s *ConvertService) loadStored(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	if s.store == nil {
		return "", nil, fmt.Errorf("no storage configured")
	}
	rc, info, err := s.store.Download(ctx, id)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return "", nil, fmt.Errorf("read stored file: %w", err)
	}
	return info.Name, buf.Bytes(), nil
}

// OpenGenerated returns the stored bytes of a previously generated file.
func (s *ConvertService) OpenGenerated(ctx context.Context, fileName string) ([]byte, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no storage configured")
	}
	rc, err := s.store.Open(ctx, fileName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}
	return buf.Bytes(), nil
}

// headerUnion collects the distinct keys across hand-entered rows, sorted
// so default mapping suggestions are stable.
func headerUnion(rows []parser.Row) []string {
	seen := make(map[string]struct{})
	var headers []string
	for _, row := range rows {
		for key := range row {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			headers = append(headers, key)
		}
	}
	sort.Strings(headers)
	return headers
}

func ext(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

func contentTypeFor(name string) string {
	switch ext(name) {
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "xls":
		return "application/vnd.ms-excel"
	case "csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
