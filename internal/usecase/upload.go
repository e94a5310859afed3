package usecase

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"example.com/taskapi/internal/domain"
)

var ErrInvalidUpload = errors.New("only CSV files are allowed")

// The suffix match is case-sensitive: "data.CSV" is rejected.
const uploadExt = ".csv"

// SummarizeUpload drains body and reports its size. The content is not parsed
// and nothing is stored.
func SummarizeUpload(filename, contentType string, body io.Reader) (domain.UploadSummary, error) {
	if !strings.HasSuffix(filename, uploadExt) {
		return domain.UploadSummary{}, ErrInvalidUpload
	}
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return domain.UploadSummary{}, fmt.Errorf("read upload: %w", err)
	}
	return domain.UploadSummary{
		Filename:    filename,
		ContentType: contentType,
		SizeInBytes: n,
	}, nil
}
