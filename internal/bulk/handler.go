package bulk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/auth"
)

// UploadField is the multipart field carrying the contacts file.
const UploadField = "contactsFile"

// Handler exposes the upload and download endpoints.
type Handler struct {
	svc       *Service
	logger    *zap.SugaredLogger
	maxUpload int64
}

func NewHandler(svc *Service, logger *zap.SugaredLogger, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{svc: svc, logger: logger, maxUpload: maxUpload}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}
	file, hdr, err := r.FormFile(UploadField)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot read file"})
		return
	}

	res, err := h.svc.Import(r.Context(), owner, data, hdr.Header.Get("Content-Type"))
	if err != nil {
		var unsupported *UnsupportedFormatError
		var decodeErr *DecodeError
		switch {
		case errors.As(err, &unsupported):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": unsupported.Error()})
		case errors.As(err, &decodeErr):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": decodeErr.Error()})
		case errors.Is(err, ErrStoreUnavailable):
			h.logger.Errorw("bulk upload: store unavailable", "err", err)
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "contact store unavailable"})
		default:
			h.logger.Errorw("bulk upload failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process file"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = ExportCSV
	}
	exp, err := h.svc.Export(r.Context(), auth.OwnerID(r.Context()), format)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedExportFormat):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid format"})
		case errors.Is(err, ErrNoContacts):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no contacts found"})
		default:
			h.logger.Errorw("contact export failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to download contacts"})
		}
		return
	}
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
