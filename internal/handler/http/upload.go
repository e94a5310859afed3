package httpx

import (
	"errors"
	"mime/multipart"
	"net/http"

	"example.com/taskapi/internal/usecase"
	"example.com/taskapi/pkg/response"
)

const uploadField = "file"

func (h *Handler) uploadTaskFile(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}
	part, err := filePart(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer part.Close()
	summary, err := usecase.SummarizeUpload(part.FileName(), part.Header.Get("Content-Type"), part)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

// filePart streams the multipart body up to the upload field so the file is
// never buffered in memory or spooled to disk.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, usecase.NewValidationError([]string{"body", uploadField}, "Expected a multipart/form-data body", "missing")
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, err
			}
			return nil, usecase.NewValidationError([]string{"body", uploadField}, "Field required", "missing")
		}
		if part.FormName() == uploadField && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}
