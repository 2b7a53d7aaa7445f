package intake

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/expense-intake/internal/extraction"
	"github.com/zombor/expense-intake/internal/household"
	"github.com/zombor/expense-intake/internal/scanning"
)

// maxUploadSize fits high-resolution phone photos
const maxUploadSize = int64(50 << 20)

// maxBodySize bounds JSON request bodies
const maxBodySize = int64(1 << 20)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

// handleExtractReceipt accepts a multipart upload in the "file" field
func (s *Server) handleExtractReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromExt(header.Filename)
	}

	receipt, err := s.service.ExtractReceipt(r.Context(), data, contentType)
	switch {
	case errors.Is(err, ErrEmptyImage):
		writeError(w, http.StatusBadRequest, "File is empty")
	case errors.Is(err, scanning.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, scanning.ErrUnsupportedFormat.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, "Could not read the receipt")
	default:
		writeJSON(w, http.StatusOK, receipt)
	}
}

func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return ""
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleParseReceiptText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.ExtractReceiptText(req.Text))
}

type expenseRequest struct {
	Text        string              `json:"text"`
	HouseholdID string              `json:"household_id"`
	Members     []extraction.Member `json:"members"`
}

func (s *Server) handleParseExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	expense, err := s.service.ParseExpense(req.Text, req.HouseholdID, req.Members)
	if err != nil {
		slog.Error("Error parsing expense", "household", req.HouseholdID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleParseShoppingList(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]extraction.ParsedListItem{
		"items": s.service.ParseShoppingList(req.Text),
	})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.service.ListMembers(r.PathValue("household"))
	if err != nil {
		slog.Error("Error listing members", "household", r.PathValue("household"), "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type memberRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeBody(w, r, &req) {
		return
	}

	member, err := s.service.AddMember(r.PathValue("household"), req.ID, req.Name)
	if errors.Is(err, ErrMemberNameRequired) || errors.Is(err, ErrHouseholdRequired) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("Error adding member", "household", r.PathValue("household"), "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := s.service.RemoveMember(r.PathValue("household"), r.PathValue("id"))
	if errors.Is(err, household.ErrMemberNotFound) {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}
	if err != nil {
		slog.Error("Error removing member", "household", r.PathValue("household"), "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
