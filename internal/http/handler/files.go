package handler

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"filevault/internal/http/middleware"
	"filevault/internal/model"
	"filevault/internal/service"
)

const (
	msgNotFound       = "File not found or permission denied."
	msgUploadFailed   = "File upload failed due to server error."
	msgDownloadFailed = "Failed to retrieve file."
	msgViewFailed     = "File retrieval failed."
)

type uploadResponse struct {
	Status string      `json:"status"`
	File   *model.File `json:"file"`
}

type listResponse struct {
	Files []model.File `json:"files"`
}

// Upload stores a plain-text file for the caller (multipart/form-data, field name: file).
//
// @Summary Upload a .txt file
// @Tags files
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param file formData file true "Plain-text file, 512 to 2048 bytes"
// @Success 201 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/upload [post]
func Upload(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := middleware.UserIDFromCtx(c)
		if !ok {
			return middleware.Unauthorized(c)
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "No file was submitted.")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		stored, err := svc.Upload(c.UserContext(), uid, service.UploadInput{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		})
		if err != nil {
			return writeUploadError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			Status: "File uploaded successfully",
			File:   stored,
		})
	}
}

// Download returns the raw bytes of one of the caller's files as an attachment.
//
// @Summary Download a file
// @Tags files
// @Security BearerAuth
// @Produce plain
// @Param filename path string true "URL-encoded filename"
// @Success 200 {string} string
// @Failure 404 {string} string
// @Failure 500 {string} string
// @Router /api/download/{filename} [get]
func Download(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, ok := accessRequest(c)
		if !ok {
			return notFound(c)
		}

		content, err := svc.Download(c.UserContext(), req)
		if err != nil {
			if errors.Is(err, service.ErrNotFoundOrForbidden) {
				return notFound(c)
			}
			return c.Status(fiber.StatusInternalServerError).SendString(msgDownloadFailed)
		}

		c.Set(fiber.HeaderContentType, content.ContentType)
		c.Set(fiber.HeaderContentDisposition, contentDisposition(content.Filename))
		return c.Status(fiber.StatusOK).Send(content.Data)
	}
}

// FileContent returns one of the caller's files decoded as text.
//
// @Summary View file content
// @Tags files
// @Security BearerAuth
// @Produce json
// @Param filename path string true "URL-encoded filename"
// @Success 200 {object} service.TextContent
// @Failure 404 {string} string
// @Failure 500 {object} errorPayload
// @Router /api/file-content/{filename} [get]
func FileContent(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, ok := accessRequest(c)
		if !ok {
			return notFound(c)
		}

		text, err := svc.View(c.UserContext(), req)
		if err != nil {
			if errors.Is(err, service.ErrNotFoundOrForbidden) {
				return notFound(c)
			}
			return writeError(c, fiber.StatusInternalServerError, "RETRIEVAL_FAILED", msgViewFailed)
		}
		return c.Status(fiber.StatusOK).JSON(text)
	}
}

// ListFiles returns the caller's files oldest first.
//
// @Summary List files
// @Tags files
// @Security BearerAuth
// @Produce json
// @Success 200 {object} listResponse
// @Failure 500 {object} errorPayload
// @Router /api/files [get]
func ListFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := middleware.UserIDFromCtx(c)
		if !ok {
			return middleware.Unauthorized(c)
		}

		files, err := svc.List(c.UserContext(), uid)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, internalError.code, internalError.message)
		}
		return c.JSON(listResponse{Files: files})
	}
}

// accessRequest builds the service request from the route and the caller.
// ok is false when the caller is unknown or the filename cannot be decoded.
func accessRequest(c *fiber.Ctx) (service.AccessRequest, bool) {
	uid, ok := middleware.UserIDFromCtx(c)
	if !ok {
		return service.AccessRequest{}, false
	}
	name, err := url.PathUnescape(c.Params("filename"))
	if err != nil || name == "" {
		return service.AccessRequest{}, false
	}
	// copies: the request may be recorded after fiber reuses its buffers
	return service.AccessRequest{
		OwnerID:   uid,
		Filename:  utils.CopyString(name),
		IPAddress: utils.CopyString(c.IP()),
		UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
	}, true
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).SendString(msgNotFound)
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")

func contentDisposition(filename string) string {
	return `attachment; filename="` + dispositionEscaper.Replace(filename) + `"`
}
