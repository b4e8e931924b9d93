package sampleapp

import (
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// allowedUploadTypes is the content-type allowlist for file uploads.
var allowedUploadTypes = map[string]bool{
	"text/csv":        true,
	"image/png":       true,
	"image/jpeg":      true,
	"application/pdf": true,
}

type uploadedFile struct {
	ID          string
	Name        string
	ContentType string
	Size        int64
	Description string
}

type uploadStore struct {
	files map[string]*uploadedFile
	lock  sync.RWMutex
}

func newUploadStore() *uploadStore {
	return &uploadStore{files: make(map[string]*uploadedFile)}
}

type uploadResponse struct {
	FileID string `json:"fileId"`
	Size   int64  `json:"size"`
}

func (a *App) postUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > a.config.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "files may not exceed the size limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadBytes)

	if err := r.ParseMultipartForm(a.config.MaxUploadBytes); err != nil {
		if _, tooLarge := err.(*http.MaxBytesError); tooLarge {
			writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "files may not exceed the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "request body was not valid multipart form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid input",
			errorDetail{Field: "file", Message: "a file part is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedUploadTypes[contentType] {
		writeError(w, http.StatusUnsupportedMediaType, codeUnsupportedMediaType,
			"this file type is not accepted")
		return
	}

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "could not read the uploaded file")
		return
	}

	stored := &uploadedFile{
		ID:          uuid.NewString(),
		Name:        header.Filename,
		ContentType: contentType,
		Size:        size,
		Description: r.FormValue("description"),
	}
	a.uploads.lock.Lock()
	a.uploads.files[stored.ID] = stored
	a.uploads.lock.Unlock()

	a.logger.Printf("stored upload %s (%s, %d bytes)", stored.ID, stored.Name, stored.Size)
	writeJSON(w, http.StatusCreated, uploadResponse{FileID: stored.ID, Size: stored.Size})
}
