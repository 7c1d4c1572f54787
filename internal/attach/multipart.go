package attach

import (
	"fmt"
	"mime/multipart"
	"net/http"
)

// maxUploadMemory bounds how much of a multipart body is buffered in memory
// before spilling to temp files.
const maxUploadMemory = 32 << 20

// FromMultipart extracts the uploads under the given form field. The
// returned closer releases the opened file handles and must be called once
// the uploads have been consumed. A request without the field yields an
// empty batch.
func FromMultipart(r *http.Request, field string) ([]Upload, func(), error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, func() {}, fmt.Errorf("attach: parse multipart form: %w", err)
	}
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}

	var opened []multipart.File
	closer := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	headers := r.MultipartForm.File[field]
	uploads := make([]Upload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closer()
			return nil, func() {}, fmt.Errorf("attach: open upload %s: %w", h.Filename, err)
		}
		opened = append(opened, f)
		uploads = append(uploads, Upload{Filename: h.Filename, Content: f})
	}
	return uploads, closer, nil
}
