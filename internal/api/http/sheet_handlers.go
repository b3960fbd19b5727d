package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gradeloop/gradeloop/internal/audit"
	"github.com/gradeloop/gradeloop/internal/gradingsession"
	"github.com/gradeloop/gradeloop/internal/storage"
)

const maxSheetBytes = 32 << 20

// POST /grading/sessions/{sessionID}/sheets  (multipart, field "file")
func UploadSheetHandler(sessions gradingsession.Store, sheets storage.SheetStore, events *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "sessionID"))
		if !ok {
			writeError(w, http.StatusBadRequest, "sessionID required")
			return
		}
		if _, err := sessions.Get(r.Context(), id); err != nil {
			if errors.Is(err, gradingsession.ErrNotFound) {
				writeError(w, http.StatusNotFound, "grading session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxSheetBytes)
		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field required: "+err.Error())
			return
		}
		defer file.Close()

		key, err := sheets.Put(id, hdr.Filename, file)
		if err != nil {
			if errors.Is(err, storage.ErrBadFilename) {
				writeError(w, http.StatusBadRequest, "bad filename")
				return
			}
			writeError(w, http.StatusInternalServerError, "store sheet: "+err.Error())
			return
		}
		if events != nil {
			data, _ := json.Marshal(map[string]string{"key": key})
			_ = events.Append(r.Context(), audit.Event{
				Type:     gradingsession.EventSheetUploaded,
				Key:      strconv.FormatInt(id, 10),
				DataJSON: string(data),
			})
		}
		writeJSON(w, map[string]string{"key": key})
	}
}

// GET /grading/sessions/{sessionID}/sheets
func ListSheetsHandler(sheets storage.SheetStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "sessionID"))
		if !ok {
			writeError(w, http.StatusBadRequest, "sessionID required")
			return
		}
		keys, err := sheets.List(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list sheets: "+err.Error())
			return
		}
		writeJSON(w, map[string]interface{}{"sheets": keys})
	}
}
