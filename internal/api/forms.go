package api

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/upload"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// formOverhead is allowed on top of the photo limit for the other fields.
const formOverhead = 1 << 20

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// parseForm reads the request body into fields. Multipart bodies are read
// with the photo limit applied; anything else is decoded as JSON. Only keys
// present in the body are set, and empty strings count as absent.
func parseForm(w http.ResponseWriter, r *http.Request, uploads *upload.Store, fields map[string]**string) error {
	if !isMultipart(r) {
		raw := map[string]any{}
		if err := decodeJSON(r, &raw); err != nil {
			return err
		}
		for key, dst := range fields {
			if v, ok := raw[key].(string); ok {
				setNonEmpty(dst, v)
			}
		}
		return nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxBytes+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return upload.ErrTooLarge
		}
		return badRequest("Invalid multipart body")
	}
	for key, dst := range fields {
		if vs := r.MultipartForm.Value[key]; len(vs) > 0 {
			setNonEmpty(dst, vs[0])
		}
	}
	return nil
}

func setNonEmpty(dst **string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = &v
	}
}

// savePhoto stores the file uploaded under field and returns its public
// path, or "" if the request carries no such file. parseForm must have run.
func savePhoto(r *http.Request, uploads *upload.Store, field string) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", badRequest("Invalid %s upload", field)
	}
	defer file.Close()

	return uploads.Save(file)
}

// discardPhoto removes an uploaded photo that is no longer referenced.
func discardPhoto(log *zap.Logger, uploads *upload.Store, photo string) {
	if photo == "" {
		return
	}
	if err := uploads.Remove(photo); err != nil {
		log.Warn("removing photo", zap.String("photo", photo), zap.Error(err))
	}
}
