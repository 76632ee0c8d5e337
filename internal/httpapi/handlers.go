package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/structured-doc-translator/internal/apperr"
	"github.com/MimeLyc/structured-doc-translator/internal/document"
	"github.com/MimeLyc/structured-doc-translator/internal/glossary"
	"github.com/MimeLyc/structured-doc-translator/internal/service"
	"github.com/MimeLyc/structured-doc-translator/internal/translator"
	"github.com/MimeLyc/structured-doc-translator/pkg/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"default": s.cfg.Translate.DefaultEngine,
			"engines": translator.Available(s.cfg),
		},
	})
}

func (s *Server) handleTranslateFile(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HTTP.MaxUploadBytes()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAppError(w, apperr.Newf(apperr.KindValidation, "file exceeds the %d MB upload limit", s.cfg.HTTP.MaxUploadMB))
			return
		}
		writeAppError(w, apperr.Wrap(err, apperr.KindValidation, "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	upload, header, err := r.FormFile("file")
	if err != nil {
		writeAppError(w, apperr.New(apperr.KindValidation, "file is required"))
		return
	}
	defer upload.Close()

	content, err := io.ReadAll(upload)
	if err != nil {
		writeAppError(w, apperr.Wrap(err, apperr.KindValidation, "failed to read uploaded file"))
		return
	}

	langs, err := parseLanguageField(r.FormValue("targetLanguages"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	format, err := resolveFileType(r.FormValue("fileType"), header.Filename)
	if err != nil {
		writeAppError(w, err)
		return
	}

	batchSize := 0
	if v := strings.TrimSpace(r.FormValue("batchSize")); v != "" {
		if batchSize, err = strconv.Atoi(v); err != nil || batchSize < 0 {
			writeAppError(w, apperr.Newf(apperr.KindValidation, "invalid batchSize %q", v))
			return
		}
	}

	var terms glossary.Glossary
	if v := strings.TrimSpace(r.FormValue("glossary")); v != "" {
		if terms, err = glossary.Parse([]byte(v)); err != nil {
			writeAppError(w, apperr.Wrap(err, apperr.KindValidation, "invalid glossary"))
			return
		}
	}

	out, err := s.translator.Run(r.Context(), service.Request{
		Content:         content,
		FileName:        header.Filename,
		Glossary:        terms,
		Format:          format,
		TargetLanguages: langs,
		BatchSize:       batchSize,
		Engine:          r.FormValue("model"),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}

type translateTextRequest struct {
	Text            string          `json:"text"`
	TargetLanguages json.RawMessage `json:"targetLanguages"`
	Model           string          `json:"model"`
}

func (s *Server) handleTranslateText(w http.ResponseWriter, r *http.Request) {
	var req translateTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, apperr.Wrap(err, apperr.KindValidation, "invalid json body"))
		return
	}

	langs, err := decodeLanguages(req.TargetLanguages)
	if err != nil {
		writeAppError(w, err)
		return
	}

	translations, err := s.translator.TranslateText(r.Context(), req.Text, langs, req.Model)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"translations": translations,
		},
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	ret := map[string]any{
		"jobs":   s.queue.List(),
		"counts": s.queue.Counts(),
	}
	if s.watcher != nil {
		ret["inbox"] = s.watcher.Status()
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.queue.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("NOT_FOUND", fmt.Sprintf("job %s not found", id)))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.watcher == nil {
		writeJSON(w, http.StatusNotFound, errorBody("NOT_FOUND", "inbox is not enabled"))
		return
	}
	created, err := s.watcher.Scan(r.Context())
	if err != nil {
		writeAppError(w, apperr.Wrap(err, apperr.KindInternal, "inbox scan failed"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"ok":      true,
		"created": created,
	})
}

// parseLanguageField accepts a JSON array string or a comma separated list.
func parseLanguageField(v string) ([]string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, apperr.New(apperr.KindValidation, "targetLanguages is required")
	}
	if strings.HasPrefix(v, "[") {
		var langs []string
		if err := json.Unmarshal([]byte(v), &langs); err != nil {
			return nil, apperr.Wrap(err, apperr.KindValidation, "targetLanguages must be a JSON array of strings")
		}
		return langs, nil
	}
	return strings.Split(v, ","), nil
}

// decodeLanguages accepts ["de","fr"] or "de,fr".
func decodeLanguages(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, apperr.New(apperr.KindValidation, "targetLanguages is required")
	}
	var langs []string
	if err := json.Unmarshal(raw, &langs); err == nil {
		return langs, nil
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, apperr.New(apperr.KindValidation, "targetLanguages must be an array or a comma separated string")
	}
	return parseLanguageField(joined)
}

// resolveFileType prefers the explicit field, then the extension, then srt.
func resolveFileType(fileType, fileName string) (document.Format, error) {
	if fileType = strings.TrimSpace(fileType); fileType != "" {
		return document.ParseFormat(fileType)
	}
	if ext := filepath.Ext(fileName); ext != "" {
		return document.ParseFormat(ext)
	}
	return document.FormatSRT, nil
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorBody(code, msg string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   errorDetail{Code: code, Message: msg},
	}
}

// writeAppError maps err to its status and code. Server side failures are
// logged with an operator hint and reported without internal details.
func writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()

	msg := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		apperr.Log(err)
		if kind == apperr.KindInternal {
			msg = "internal server error"
		}
	} else {
		log.Debug("Rejected request: %v", err)
	}

	writeJSON(w, status, errorBody(kind.Code(), msg))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
