// Package handler exposes the conversion engine over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/autoorder/autoorder/internal/domain/convert/mapping"
	"github.com/autoorder/autoorder/internal/domain/convert/parser"
	"github.com/autoorder/autoorder/internal/domain/convert/service"
	"github.com/autoorder/autoorder/internal/domain/convert/template"
	"github.com/autoorder/autoorder/internal/domain/mappingstore"
	"github.com/autoorder/autoorder/internal/domain/suggest"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ConvertHandler handles order conversion requests
type ConvertHandler struct {
	convertSvc     *service.ConvertService
	mappingRepo    mappingstore.Repository
	suggestSvc     *suggest.Service
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewConvertHandler creates a new conversion handler
func NewConvertHandler(convertSvc *service.ConvertService, mappingRepo mappingstore.Repository, suggestSvc *suggest.Service, maxUploadBytes int64, logger *slog.Logger) *ConvertHandler {
	return &ConvertHandler{
		convertSvc:     convertSvc,
		mappingRepo:    mappingRepo,
		suggestSvc:     suggestSvc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Routes mounts the order conversion endpoints.
func (h *ConvertHandler) Routes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Post("/mapping", h.SaveMapping)
	r.Get("/mapping", h.ListMappings)
	r.Delete("/mapping/{id}", h.DeleteMapping)
	r.Post("/generate", h.Generate)
	r.Post("/generate-direct", h.GenerateDirect)
	r.Post("/ai-mapping", h.AIMapping)
	r.Get("/download/{fileName}", h.Download)
}

// Upload receives a source/template pair and returns the parsed preview.
func (h *ConvertHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart request: %w", err))
		return
	}

	sourceName, sourceData, err := readFormFile(r, "source")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	templateName, templateData, err := readFormFile(r, "template")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.convertSvc.Analyze(r.Context(), sourceName, sourceData, templateName, templateData)
	if err != nil {
		h.writeConversionError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type saveMappingRequest struct {
	Name         string              `json:"name"`
	TemplateName string              `json:"template_name"`
	Spec         *mapping.Spec       `json:"spec"`
	FixedValues  mapping.FixedValues `json:"fixed_values"`
}

// SaveMapping persists a named column mapping for reuse.
func (h *ConvertHandler) SaveMapping(w http.ResponseWriter, r *http.Request) {
	var req saveMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Name == "" || req.Spec == nil || req.Spec.Len() == 0 {
		h.writeError(w, http.StatusBadRequest, errors.New("name and a non-empty spec are required"))
		return
	}

	stored := &mappingstore.StoredMapping{
		Name:         req.Name,
		TemplateName: req.TemplateName,
		Spec:         req.Spec,
		FixedValues:  req.FixedValues,
	}
	if err := h.mappingRepo.Save(r.Context(), stored); err != nil {
		h.logger.Error("failed to save mapping", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, errors.New("failed to save mapping"))
		return
	}

	h.writeJSON(w, http.StatusOK, stored)
}

// ListMappings returns all saved mappings.
func (h *ConvertHandler) ListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.mappingRepo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list mappings", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, errors.New("failed to list mappings"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}

// DeleteMapping removes a saved mapping.
func (h *ConvertHandler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid mapping id"))
		return
	}
	if err := h.mappingRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, mappingstore.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to delete mapping", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, errors.New("failed to delete mapping"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type generateRequest struct {
	SourceFileID   string              `json:"source_file_id"`
	TemplateFileID string              `json:"template_file_id"`
	MappingName    string              `json:"mapping_name,omitempty"`
	Spec           *mapping.Spec       `json:"spec,omitempty"`
	FixedValues    mapping.FixedValues `json:"fixed_values,omitempty"`
}

// Generate converts a previously uploaded source/template pair. The
// mapping comes inline, from a saved mapping by name, or defaults to the
// keyword-derived mapping.
func (h *ConvertHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	sourceID, err := uuid.Parse(req.SourceFileID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid source_file_id"))
		return
	}
	templateID, err := uuid.Parse(req.TemplateFileID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid template_file_id"))
		return
	}

	spec, fixed := req.Spec, req.FixedValues
	if spec == nil && req.MappingName != "" {
		stored, err := h.mappingRepo.GetByName(r.Context(), req.MappingName)
		if err != nil {
			if errors.Is(err, mappingstore.ErrNotFound) {
				h.writeError(w, http.StatusNotFound, fmt.Errorf("mapping %q not found", req.MappingName))
				return
			}
			h.logger.Error("failed to load mapping", slog.Any("error", err))
			h.writeError(w, http.StatusInternalServerError, errors.New("failed to load mapping"))
			return
		}
		spec = stored.Spec
		if fixed == nil {
			fixed = stored.FixedValues
		}
	}

	result, err := h.convertSvc.ConvertStored(r.Context(), sourceID, templateID, spec, fixed)
	if err != nil {
		h.writeConversionError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type generateDirectRequest struct {
	TemplateFileID string              `json:"template_file_id"`
	Rows           []parser.Row        `json:"rows"`
	FixedValues    mapping.FixedValues `json:"fixed_values,omitempty"`
}

// GenerateDirect builds a purchase order from hand-entered rows.
func (h *ConvertHandler) GenerateDirect(w http.ResponseWriter, r *http.Request) {
	var req generateDirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(req.Rows) == 0 {
		h.writeError(w, http.StatusBadRequest, errors.New("at least one row is required"))
		return
	}

	templateID, err := uuid.Parse(req.TemplateFileID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid template_file_id"))
		return
	}

	result, err := h.convertSvc.ConvertDirectStored(r.Context(), templateID, req.Rows, req.FixedValues)
	if err != nil {
		h.writeConversionError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type aiMappingRequest struct {
	SourceHeaders   []string `json:"source_headers"`
	TemplateHeaders []string `json:"template_headers"`
}

// AIMapping suggests a mapping between source and template headers.
func (h *ConvertHandler) AIMapping(w http.ResponseWriter, r *http.Request) {
	var req aiMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if len(req.SourceHeaders) == 0 || len(req.TemplateHeaders) == 0 {
		h.writeError(w, http.StatusBadRequest, errors.New("source_headers and template_headers are required"))
		return
	}

	spec, err := h.suggestSvc.Suggest(r.Context(), req.SourceHeaders, req.TemplateHeaders)
	if err != nil {
		h.logger.Error("mapping suggestion failed", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, errors.New("failed to suggest mapping"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"spec": spec})
}

// Download streams a generated purchase order.
func (h *ConvertHandler) Download(w http.ResponseWriter, r *http.Request) {
	fileName := chi.URLParam(r, "fileName")
	if fileName == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("file name is required"))
		return
	}

	data, err := h.convertSvc.OpenGenerated(r.Context(), fileName)
	if err != nil {
		h.writeError(w, http.StatusNotFound, fmt.Errorf("file not available: %s", fileName))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("download interrupted", slog.Any("error", err))
	}
}

// writeConversionError maps engine errors to HTTP responses carrying the
// remediation guidance the parser attaches.
func (h *ConvertHandler) writeConversionError(w http.ResponseWriter, err error) {
	var (
		unreadable  *parser.UnreadableFormatError
		noHeader    *parser.NoHeaderFoundError
		badTemplate *template.HeaderNotFoundError
	)
	switch {
	case errors.As(err, &unreadable):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    unreadable.Error(),
			"guidance": unreadable.Guidance,
		})
	case errors.As(err, &noHeader):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    noHeader.Error(),
			"guidance": "파일에서 헤더 행을 찾을 수 없습니다. 첫 10행 안에 컬럼명이 있는지 확인해주세요.",
		})
	case errors.As(err, &badTemplate):
		h.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    badTemplate.Error(),
			"guidance": "발주서 템플릿에서 헤더 행을 찾을 수 없습니다. 템플릿 파일을 확인해주세요.",
		})
	default:
		h.logger.Error("conversion failed", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, errors.New("conversion failed"))
	}
}

func (h *ConvertHandler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *ConvertHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", slog.Any("error", err))
	}
}

func readFormFile(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("missing %q file: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %q file: %w", field, err)
	}
	return header.Filename, data, nil
}
