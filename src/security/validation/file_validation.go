package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/fundrecon/backend/src/logger"
)

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
// Reconciliation inputs arrive as spreadsheets (.xlsx, legacy .xls) or delimited text.
var AllowedClientContentTypes = map[string]bool{
	"text/csv":                  true,
	"application/csv":           true,
	"text/plain":                true,
	"text/tab-separated-values": true,
	"application/vnd.ms-excel":  true, // legacy .xls, also used for CSV by older Excel
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true, // .xlsx
	"application/octet-stream": true, // fallback, the grid decoder is strict anyway
}

// xlsMagic is the OLE2 compound-document signature carried by legacy .xls files.
var xlsMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	normalized := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if allowed, exists := AllowedClientContentTypes[normalized]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for reconciliation uploads", contentType)
	}
	return nil
}

// ValidateFileContent checks the actual content signature of an uploaded blob.
// xlsx is a zip container ("PK"), xls an OLE2 compound document; anything else
// must look like text for the delimited-text decoder.
func ValidateFileContent(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("file is empty")
	}

	if bytes.HasPrefix(data, []byte("PK")) {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	}
	if bytes.HasPrefix(data, xlsMagic) {
		return "application/vnd.ms-excel", nil
	}

	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	detected := http.DetectContentType(data[:sniffLen])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	allowedDetectedTypes := map[string]bool{
		"text/plain":               true,
		"text/csv":                 true,
		"application/csv":          true,
		"application/octet-stream": true, // strict parsing catches junk later
	}
	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detected)
		return detected, fmt.Errorf("detected file content type '%s' is not a spreadsheet or delimited text file", detected)
	}
	return detected, nil
}

// ReadAll drains an upload into memory, enforcing the configured size cap at
// the reader level as well (the multipart limit is checked upstream).
func ReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file exceeds the %d byte upload limit", maxBytes)
	}
	return data, nil
}
