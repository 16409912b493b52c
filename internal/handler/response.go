package handler

import (
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"campus-erp/internal/domain"
	"campus-erp/internal/middleware"
)

// Response is the envelope every successful request is answered with.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(Response{Success: true, Data: data})
}

func respondMessage(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Response{Success: true, Message: message})
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()

	if page := c.QueryInt("page", 1); page > 0 {
		params.Page = page
	}
	if pageSize := c.QueryInt("page_size", domain.DefaultPageSize); pageSize > 0 {
		params.PageSize = pageSize
	}

	params.Validate()
	return params
}

func parseID(c *fiber.Ctx, param, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, middleware.BadRequest("Invalid " + label + " ID")
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	return nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// formAttachments collects the "attachments" files of a multipart request.
func formAttachments(c *fiber.Ctx) ([]domain.AttachmentUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, middleware.BadRequest("Invalid multipart form")
	}

	files := form.File["attachments"]
	uploads := make([]domain.AttachmentUpload, 0, len(files))
	for _, fh := range files {
		fh := fh
		mimeType := fh.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		uploads = append(uploads, domain.AttachmentUpload{
			FileName: fh.Filename,
			Size:     fh.Size,
			MimeType: mimeType,
			Open:     func() (io.ReadCloser, error) { return openFile(fh) },
		})
	}
	return uploads, nil
}

func openFile(fh *multipart.FileHeader) (io.ReadCloser, error) {
	return fh.Open()
}
