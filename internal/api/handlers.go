package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nekostore/neko-object/internal/apierr"
	"github.com/nekostore/neko-object/internal/logger"
	"github.com/nekostore/neko-object/internal/store"
)

var validate = validator.New()

type handlers struct {
	deps Deps
}

// --- System ---

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (h *handlers) systemStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Index.ComputeStats(r.Context(), h.deps.DBConfig)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, stats)
}

func (h *handlers) systemBackup(w http.ResponseWriter, r *http.Request) {
	if h.deps.Backup == nil {
		writeError(w, apierr.Validation("backup is not configured"))
		return
	}
	h.deps.Backup.Run(r.Context())
	writeOK(w, map[string]any{"last_backup": h.deps.Backup.LastBackup()})
}

// --- Upload ---

func (h *handlers) uploadInit(w http.ResponseWriter, r *http.Request) {
	var meta store.FileMeta
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeError(w, apierr.Validation("invalid request body"))
		return
	}
	if err := validate.Struct(meta); err != nil {
		writeError(w, apierr.Validation(err.Error()))
		return
	}
	if err := h.deps.Upload.Init(r.Context(), meta); err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, map[string]any{"id": meta.ID})
}

func (h *handlers) uploadChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, apierr.Validation("failed to read request body"))
		return
	}

	result, err := h.deps.Upload.ChunkUpload(r.Context(), id, r.Header, data)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.AddUploadBytes(int64(len(data)))
	}
	writeOK(w, result)
}

func (h *handlers) uploadChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	indices, err := h.deps.Upload.DiscoverChunks(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"chunks": indices})
}

func (h *handlers) uploadFinalize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	skipBackup := r.URL.Query().Get("skip_backup") == "true"
	if err := h.deps.Upload.Finalize(r.Context(), id, skipBackup); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"id": id, "status": store.StatusActive})
}

func (h *handlers) uploadAbort(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.deps.Upload.Abort(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"id": id, "aborted": true})
}

func (h *handlers) uploadPurgePending(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Upload.BulkPurgePending(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"purged": true})
}

// --- Files ---

func (h *handlers) filesList(w http.ResponseWriter, r *http.Request) {
	status := store.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = store.StatusActive
	}
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	result, err := h.deps.Index.ListFiles(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, result)
}

func (h *handlers) filesSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, apierr.Validation("q is required"))
		return
	}
	status := store.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = store.StatusActive
	}

	files, err := h.deps.Index.SearchFiles(r.Context(), q, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"files": files})
}

func (h *handlers) filesGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	file, err := h.deps.Index.GetFile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, file)
}

func (h *handlers) filesRestore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.deps.Index.SetStatus(r.Context(), id, store.StatusActive); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"id": id, "status": store.StatusActive})
}

func (h *handlers) filesDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	file, err := h.deps.Index.GetFile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	switch file.Status {
	case store.StatusTrashed:
		// Second delete on an already-trashed file permanently removes it,
		// reusing Abort's chunk-collect-then-BulkDelete pattern.
		if err := h.deps.Upload.Abort(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, map[string]any{"id": id, "status": "deleted"})
	case store.StatusActive:
		if err := h.deps.Index.SetStatus(r.Context(), id, store.StatusTrashed); err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, map[string]any{"id": id, "status": store.StatusTrashed})
	default:
		writeError(w, apierr.Conflict("file is not active or trashed"))
	}
}

func (h *handlers) filesEmptyTrash(w http.ResponseWriter, r *http.Request) {
	purged, err := h.deps.Upload.PurgeTrashed(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"purged": purged})
}

// --- Download & Stream ---

func (h *handlers) download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if idxParam := r.URL.Query().Get("index"); idxParam != "" {
		idx, err := strconv.Atoi(idxParam)
		if err != nil {
			writeError(w, apierr.Validation("index must be an integer"))
			return
		}
		body, err := h.deps.Download.FetchChunkByIndex(r.Context(), id, idx)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.FormatInt(body.Size, 10))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body.Data)
		if h.deps.Metrics != nil {
			h.deps.Metrics.AddDownloadBytes(body.Size)
		}
		return
	}

	file, err := h.deps.Index.GetFile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	startChunk := queryInt(r, "start_chunk", 0)
	length, err := h.deps.Download.ContentLength(r.Context(), id, startChunk)
	if err != nil {
		writeError(w, err)
		return
	}

	disposition := "attachment"
	if r.URL.Query().Get("inline") == "true" {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename*=UTF-8''%s", disposition, url.PathEscape(file.Name)))
	w.WriteHeader(http.StatusOK)

	if err := h.deps.Download.StreamFile(r.Context(), id, startChunk, w); err != nil {
		logger.Error("api: stream download failed mid-write", "file_id", id, "error", err)
	}
}

func (h *handlers) stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	file, err := h.deps.Index.GetFile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
		w.WriteHeader(http.StatusOK)
		if err := h.deps.Download.StreamFile(r.Context(), id, 0, w); err != nil {
			logger.Error("api: full stream failed mid-write", "file_id", id, "error", err)
		}
		return
	}

	start, end, err := parseRange(rangeHeader, file.Size)
	if err != nil {
		writeError(w, apierr.RangeNotSat(err.Error()))
		return
	}

	result, err := h.deps.Range.Serve(r.Context(), id, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Range", result.ContentRange)
	w.Header().Set("Content-Length", strconv.FormatInt(result.ContentLength, 10))
	w.WriteHeader(http.StatusPartialContent)
	if _, err := io.Copy(w, result.Body); err != nil {
		logger.Error("api: range stream failed mid-write", "file_id", id, "error", err)
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.AddDownloadBytes(result.ContentLength)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
