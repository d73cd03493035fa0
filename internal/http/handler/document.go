package handler

import (
	"mime"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"familyvault/internal/http/middleware"
	"familyvault/internal/service"
)

// documentID returns the :id parameter when it is a UUID.
func documentID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func queryInt(c *fiber.Ctx, key string, fields map[string]string) *int {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		fields[key] = "must be an integer"
		return nil
	}
	return &v
}

type pagination struct {
	Current        int `json:"current"`
	Total          int `json:"total"`
	Count          int `json:"count"`
	TotalDocuments int `json:"totalDocuments"`
}

// ListDocuments returns the caller's visible documents, newest first, without payloads.
//
// @Summary     List documents
// @Tags        documents
// @Produce     json
// @Security    BearerAuth
// @Param       type  query string false "Document type"
// @Param       page  query int    false "Page, from 1"
// @Param       limit query int    false "Page size, 1 to 50"
// @Success     200 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Router      /api/documents [get]
func ListDocuments(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fields := map[string]string{}
		in := service.ListInput{
			Type:  c.Query("type"),
			Page:  queryInt(c, "page", fields),
			Limit: queryInt(c, "limit", fields),
		}
		if len(fields) > 0 {
			return writeValidation(c, fields)
		}

		res, err := svc.List(c.UserContext(), middleware.AccountID(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"documents": res.Items,
			"pagination": pagination{
				Current:        res.Page,
				Total:          res.Pages(),
				Count:          len(res.Items),
				TotalDocuments: res.Total,
			},
		})
	}
}

// UploadDocument stores a JPEG, PNG or PDF sent as multipart field "document".
//
// @Summary     Upload a document
// @Tags        documents
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       document       formData file   true  "Payload"
// @Param       title          formData string true  "Title"
// @Param       documentType   formData string true  "Document type"
// @Param       description    formData string false "Description"
// @Param       issuedBy       formData string false "Issuer"
// @Param       issueDate      formData string false "ISO 8601 date"
// @Param       expiryDate     formData string false "ISO 8601 date"
// @Param       documentNumber formData string false "Document number"
// @Param       tags           formData []string false "Tags" collectionFormat(multi)
// @Success     201 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Router      /api/documents/upload [post]
func UploadDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("document")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", service.ErrFileRequired.Error())
		}

		var in service.UploadInput
		if err := c.BodyParser(&in); err != nil {
			return writeValidation(c, map[string]string{"body": "must be a valid multipart form"})
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Upload(c.UserContext(), middleware.AccountID(c), in, service.FileInput{
			Reader:       f,
			FileName:     fh.Filename,
			Size:         fh.Size,
			DeclaredType: fh.Header.Get(fiber.HeaderContentType),
		})
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":  "Document uploaded successfully",
			"document": doc,
		})
	}
}

// GetDocument returns a visible document with its payload base64-encoded in fileData.
//
// @Summary     Get a document
// @Tags        documents
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Document ID"
// @Success     200 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Router      /api/documents/{id} [get]
func GetDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		doc, err := svc.Get(c.UserContext(), middleware.AccountID(c), id)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"document": doc})
	}
}

// DownloadDocument streams the raw payload to the owner or a grantee with canDownload.
//
// @Summary     Download a document payload
// @Tags        documents
// @Produce     octet-stream
// @Security    BearerAuth
// @Param       id path string true "Document ID"
// @Success     200 {file} binary
// @Failure     403 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Router      /api/documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		p, err := svc.Download(c.UserContext(), middleware.AccountID(c), id)
		if err != nil {
			return respondError(c, log, err)
		}

		c.Set(fiber.HeaderContentType, p.MimeType)
		c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": p.FileName}))
		// fasthttp closes the body once it is written.
		return c.SendStream(p.Body, int(p.Size))
	}
}

// UpdateDocument edits the metadata of an owned document.
//
// @Summary     Update document metadata
// @Tags        documents
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id   path string              true "Document ID"
// @Param       body body service.UpdateInput true "Changes"
// @Success     200 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Router      /api/documents/{id} [put]
func UpdateDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var in service.UpdateInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}

		doc, err := svc.Update(c.UserContext(), middleware.AccountID(c), id, in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"message":  "Document updated successfully",
			"document": doc,
		})
	}
}

// DeleteDocument soft-deletes an owned document.
//
// @Summary     Delete a document
// @Tags        documents
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Document ID"
// @Success     200 {object} map[string]string
// @Failure     404 {object} errorPayload
// @Router      /api/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := svc.Delete(c.UserContext(), middleware.AccountID(c), id); err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"message": "Document deleted successfully"})
	}
}

// ShareDocument grants a verified account access to an owned document.
//
// @Summary     Share a document
// @Tags        documents
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id   path string             true "Document ID"
// @Param       body body service.ShareInput true "Grantee and permissions"
// @Success     200 {object} map[string]any
// @Failure     400 {object} errorPayload
// @Failure     404 {object} errorPayload
// @Failure     409 {object} errorPayload
// @Router      /api/documents/{id}/share [post]
func ShareDocument(svc service.DocumentService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var in service.ShareInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}

		doc, err := svc.Share(c.UserContext(), middleware.AccountID(c), id, in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"message":  "Document shared successfully",
			"document": doc,
		})
	}
}
