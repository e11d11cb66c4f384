package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/camden-git/familytreebackend/database"
	"github.com/camden-git/familytreebackend/gedcom"
	"github.com/camden-git/familytreebackend/services"
	"github.com/camden-git/familytreebackend/workers"
)

// ImportQueue queues a commit of uploaded content into a tree.
type ImportQueue interface {
	Submit(treeID, filename string, content []byte) (database.ImportRun, error)
}

type ImportHandler struct {
	Imports        *services.ImportService
	Queue          ImportQueue
	MaxUploadBytes int64
}

var errUploadTooLarge = errors.New("upload too large")

// readUpload returns the uploaded file. Multipart requests carry it in the "file" field,
// other requests in the body with the name in the filename query parameter.
func (h *ImportHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", nil, errUploadTooLarge
			}
			return "", nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("missing form field 'file': %w", err)
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read uploaded file: %w", err)
		}
		return header.Filename, content, nil
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, errUploadTooLarge
		}
		return "", nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return r.URL.Query().Get("filename"), content, nil
}

func (h *ImportHandler) writeUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUploadTooLarge) {
		WriteAPIError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("Upload exceeds %d bytes", h.MaxUploadBytes))
		return
	}
	WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
}

// PreviewImport parses an upload and returns the result without storing anything.
func (h *ImportHandler) PreviewImport(w http.ResponseWriter, r *http.Request) {
	filename, content, err := h.readUpload(w, r)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	result, err := h.Imports.Preview(filename, content)
	if err != nil {
		if errors.Is(err, gedcom.ErrEmptyInput) || errors.Is(err, gedcom.ErrFormat) {
			WriteAPIError(w, http.StatusUnprocessableEntity, CodeUnprocessableFile, err.Error())
			return
		}
		log.Printf("Error previewing import %s: %v", filename, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to parse upload")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// QueueImport registers an upload and queues its commit into the tree.
func (h *ImportHandler) QueueImport(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)
	filename, content, err := h.readUpload(w, r)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		WriteAPIError(w, http.StatusUnprocessableEntity, CodeUnprocessableFile, gedcom.ErrEmptyInput.Error())
		return
	}

	run, err := h.Queue.Submit(treeID, filename, content)
	switch {
	case errors.Is(err, services.ErrAlreadyImported):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"errors": []APIErrorDetail{{Code: CodeAlreadyImported, Status: "409", Detail: err.Error()}},
			"run":    run,
		})
	case errors.Is(err, workers.ErrQueueFull):
		WriteAPIError(w, http.StatusServiceUnavailable, CodeQueueFull, "Import queue is full, try again later")
	case err != nil:
		log.Printf("Error queueing import %s for tree %s: %v", filename, treeID, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to queue import")
	default:
		writeJSON(w, http.StatusAccepted, run)
	}
}

// ListImports returns the import ledger of the tree, newest first.
func (h *ImportHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)
	runs, err := h.Imports.ListRuns(treeID)
	if err != nil {
		log.Printf("Error listing imports for tree %s: %v", treeID, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to retrieve imports")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
