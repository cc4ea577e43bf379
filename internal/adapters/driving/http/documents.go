package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
)

// uploadDocumentRequest is the JSON form of a document upload
// @Description Plain-text policy document upload
type uploadDocumentRequest struct {
	DocumentID string `json:"document_id,omitempty" example:"it-security-2024"`
	Filename   string `json:"filename" example:"it-security.md"`
	PolicyArea string `json:"policy_area" example:"IT" enums:"IT,HR,General"`
	Text       string `json:"text" example:"All remote connections must use the corporate VPN."`
}

// UploadDocumentResponse reports the outcome of an ingestion
// @Description Result of ingesting a policy document
type UploadDocumentResponse struct {
	Message       string           `json:"message" example:"Document it-security.md ingested into IT policies"`
	DocumentID    string           `json:"document_id" example:"5b0e6f1c-4c1f-4b7e-9a57-1f0c2f0e9d11"`
	ChunksCreated int              `json:"chunks_created" example:"12"`
	PolicyArea    domain.TopicArea `json:"policy_area" example:"IT"`
}

// Document endpoints

// handleUploadDocument godoc
// @Summary      Upload a policy document
// @Description  Ingest a document into one policy area (admin only). Send multipart/form-data with a file and policy_area, or JSON with filename, policy_area and text. Supported files are .txt, .md and .pdf.
// @Tags         Documents
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        file         formData  file    false  "Document file"
// @Param        policy_area  formData  string  false  "IT, HR or General"
// @Param        request      body      uploadDocumentRequest  false  "JSON upload"
// @Success      201  {object}  UploadDocumentResponse
// @Failure      400  {object}  ErrorResponse  "Invalid input or empty document"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      409  {object}  ErrorResponse  "Document already exists"
// @Failure      415  {object}  ErrorResponse  "Unsupported file format"
// @Failure      503  {object}  ErrorResponse  "Embedding service unavailable"
// @Router       /documents [post]
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be multipart/form-data or application/json")
		return
	}

	var doc *domain.Document
	switch mediaType {
	case "multipart/form-data":
		doc, err = s.ingestMultipart(r)
	case "application/json":
		doc, err = s.ingestJSON(r)
	default:
		writeError(w, http.StatusUnsupportedMediaType, "content type must be multipart/form-data or application/json")
		return
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("document exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadDocumentResponse{
		Message:       fmt.Sprintf("Document %s ingested into %s policies", doc.Filename, doc.Area),
		DocumentID:    doc.ID,
		ChunksCreated: doc.ChunkCount,
		PolicyArea:    doc.Area,
	})
}

func (s *Server) ingestMultipart(r *http.Request) (*domain.Document, error) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: malformed multipart body", domain.ErrInvalidInput)
	}

	area, err := domain.ParseTopicArea(r.FormValue("policy_area"))
	if err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: file is required", domain.ErrInvalidInput)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return s.ingestionService.IngestFile(r.Context(), driving.IngestFileRequest{
		DocumentID: r.FormValue("document_id"),
		Filename:   header.Filename,
		Area:       area,
		Data:       data,
	})
}

func (s *Server) ingestJSON(r *http.Request) (*domain.Document, error) {
	var req uploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}

	area, err := domain.ParseTopicArea(req.PolicyArea)
	if err != nil {
		return nil, err
	}

	return s.ingestionService.Ingest(r.Context(), driving.IngestRequest{
		DocumentID: req.DocumentID,
		Filename:   req.Filename,
		Area:       area,
		Text:       req.Text,
	})
}

// handleListDocuments godoc
// @Summary      List policy documents
// @Description  List ingested documents, newest first, optionally filtered by policy area
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        policy_area  query     string  false  "IT, HR or General"
// @Success      200  {array}   domain.Document
// @Failure      400  {object}  ErrorResponse  "Invalid policy area"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	var filter domain.DocumentFilter
	if raw := r.URL.Query().Get("policy_area"); raw != "" {
		area, err := domain.ParseTopicArea(raw)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		filter.Area = area
	}

	docs, err := s.ingestionService.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	writeJSON(w, http.StatusOK, docs)
}

// handleGetDocument godoc
// @Summary      Get policy document
// @Description  Get a document summary by ID
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ingestionService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument godoc
// @Summary      Delete policy document
// @Description  Delete a document and all of its chunks from the index (admin only)
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.ingestionService.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}
