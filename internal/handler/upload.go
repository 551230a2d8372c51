package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/deppfellow/storefront/internal/errs"
	"github.com/deppfellow/storefront/internal/lib/upload"
	"github.com/deppfellow/storefront/internal/middleware"
	"github.com/deppfellow/storefront/internal/model"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
)

// UploadSaver persists the files of one request.
type UploadSaver interface {
	Save(ctx context.Context, files []upload.Incoming) ([]model.UploadedFile, error)
}

// UploadHandler serves POST /api/upload.
type UploadHandler struct {
	Handler
	uploads   UploadSaver
	fieldName string
	maxFiles  int
}

func NewUploadHandler(s *server.Server, uploads UploadSaver) *UploadHandler {
	return &UploadHandler{
		Handler:   NewHandler(s),
		uploads:   uploads,
		fieldName: s.Config.Upload.FieldName,
		maxFiles:  s.Config.Upload.MaxFiles,
	}
}

// SingleUploadResponse is returned when exactly one file was uploaded.
type SingleUploadResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
}

type UploadedFileRef struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// MultiUploadResponse is returned for two or more files.
type MultiUploadResponse struct {
	Message string            `json:"message"`
	Files   []UploadedFileRef `json:"files"`
}

// Upload stores the files sent under the configured multipart field.
//
// Paths in the response are public, relative paths (/uploads/<name>);
// the filesystem location never leaves the server.
func (h *UploadHandler) Upload(c echo.Context) error {
	logger := middleware.GetLogger(c).With().
		Str("operation", "upload").
		Logger()

	headers, err := h.formFiles(c)
	if err != nil {
		return err
	}

	switch {
	case len(headers) == 0:
		code := "NO_FILES_UPLOADED"
		return errs.NewBadRequestError("No files uploaded", &code, nil)
	case len(headers) > h.maxFiles:
		code := "TOO_MANY_FILES"
		return errs.NewBadRequestError("Too many files: at most "+strconv.Itoa(h.maxFiles)+" allowed", &code, nil)
	}

	incoming := make([]upload.Incoming, len(headers))
	var total int64
	for i, fh := range headers {
		incoming[i] = toIncoming(fh)
		total += fh.Size
	}

	start := time.Now()
	saved, err := h.uploads.Save(c.Request().Context(), incoming)
	if err != nil {
		logger.Error().Err(err).Int("files", len(incoming)).Msg("upload failed")
		if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
			txn.AddAttribute("upload.status", "error")
		}
		return err
	}

	logger.Info().
		Int("files", len(saved)).
		Str("size", humanize.Bytes(uint64(total))).
		Dur("duration", time.Since(start)).
		Msg("files uploaded")

	if txn := newrelic.FromContext(c.Request().Context()); txn != nil {
		txn.AddAttribute("upload.files", len(saved))
		txn.AddAttribute("upload.size_bytes", total)
	}

	if len(saved) == 1 {
		return c.JSON(http.StatusOK, SingleUploadResponse{
			Message:  "File uploaded successfully",
			FilePath: saved[0].RelativePath,
		})
	}

	refs := make([]UploadedFileRef, len(saved))
	for i, f := range saved {
		refs[i] = UploadedFileRef{Filename: f.StoredName, Path: f.RelativePath}
	}
	return c.JSON(http.StatusOK, MultiUploadResponse{
		Message: "Files uploaded successfully",
		Files:   refs,
	})
}

// formFiles returns the file headers under the upload field. A request
// that is not multipart simply has no files.
func (h *UploadHandler) formFiles(c echo.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, nil
		}
		code := "INVALID_MULTIPART_BODY"
		return nil, errs.NewBadRequestError("Invalid multipart body", &code, nil)
	}
	return form.File[h.fieldName], nil
}

func toIncoming(fh *multipart.FileHeader) upload.Incoming {
	return upload.Incoming{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
