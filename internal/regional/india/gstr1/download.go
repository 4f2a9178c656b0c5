package gstr1

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

// DownloadRequest asks for filing content to be returned as a file.
type DownloadRequest struct {
	ReportName string          `json:"report_name" validate:"required"`
	ReportType string          `json:"report_type" validate:"required"`
	Data       json.RawMessage `json:"data" validate:"required"`
}

// File is a downloadable attachment.
type File struct {
	Name        string
	ContentType string
	Content     []byte
	ETag        string
}

var lower = cases.Lower(language.Und)

// Scrub lower-cases s and replaces spaces and hyphens with underscores.
func Scrub(s string) string {
	return lower.String(strings.NewReplacer(" ", "_", "-", "_").Replace(s))
}

// FileName is the attachment name of a report's filing JSON.
func FileName(reportName, reportType string) string {
	return Scrub(reportName+" "+reportType) + ".json"
}

// Digest is the hex blake2b-256 sum of content.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NewDownload packages req as a JSON file. Data may be the JSON document
// itself or a string holding it.
func NewDownload(req DownloadRequest) (File, error) {
	content := bytes.TrimSpace(req.Data)
	if len(content) == 0 || bytes.Equal(content, []byte("null")) {
		return File{}, shared.NewValidationError(errors.New("download data is empty"), map[string]string{"data": "required"})
	}
	if content[0] == '"' {
		var inner string
		if err := json.Unmarshal(content, &inner); err != nil {
			return File{}, fmt.Errorf("gstr1: decode download data: %w", err)
		}
		content = []byte(inner)
	}
	if !json.Valid(content) {
		return File{}, shared.NewValidationError(errors.New("download data is not valid json"), map[string]string{"data": "invalid json"})
	}
	return File{
		Name:        FileName(req.ReportName, req.ReportType),
		ContentType: "application/json",
		Content:     content,
		ETag:        `"` + Digest(content) + `"`,
	}, nil
}
