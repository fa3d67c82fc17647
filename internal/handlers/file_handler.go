package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"sort"
	"time"

	"userhub/internal/storage"
	"userhub/pkg/apperror"
	"userhub/pkg/response"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	uploadField      = "files"
	validateField    = "aaa"
	maxMultipleFiles = 3
	maxValidateSize  = 1000
	validateMIMEType = "image/jpeg"
)

// StoredFile describes one persisted upload.
type StoredFile struct {
	Field        string `json:"field"`
	OriginalName string `json:"originalName"`
	Filename     string `json:"filename"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
}

// UploadResult is the data of every upload response.
type UploadResult struct {
	Files []StoredFile      `json:"files"`
	Body  map[string]string `json:"body"`
}

// FileHandler accepts multipart uploads and writes them to blob stores.
type FileHandler struct {
	uploads *storage.LocalBlobStore
	named   *storage.LocalBlobStore
	logger  *logrus.Logger
}

// NewFileHandler creates a FileHandler. uploads receives randomly named
// blobs, named keeps the client's file names.
func NewFileHandler(uploads, named *storage.LocalBlobStore, logger *logrus.Logger) *FileHandler {
	return &FileHandler{
		uploads: uploads,
		named:   named,
		logger:  logger,
	}
}

// RegisterRoutes registers the upload routes with the Fiber app.
func (h *FileHandler) RegisterRoutes(router fiber.Router) {
	fileRoutes := router.Group("/file")
	fileRoutes.Post("/single", response.Handle(h.HandleSingle))
	fileRoutes.Post("/multiple", response.Handle(h.HandleMultiple))
	fileRoutes.Post("/storage", response.Handle(h.HandleStorage))
	fileRoutes.Post("/validate", response.Handle(h.HandleValidate))
}

// HandleSingle stores exactly one file from the "files" field.
func (h *FileHandler) HandleSingle(c *fiber.Ctx) (any, error) {
	form, err := parseForm(c)
	if err != nil {
		return nil, err
	}
	files, err := onlyField(form, uploadField, 1)
	if err != nil {
		return nil, err
	}
	return h.store(form, files, h.uploads, randomName)
}

// HandleMultiple stores up to three files from the "files" field.
func (h *FileHandler) HandleMultiple(c *fiber.Ctx) (any, error) {
	form, err := parseForm(c)
	if err != nil {
		return nil, err
	}
	files, err := onlyField(form, uploadField, maxMultipleFiles)
	if err != nil {
		return nil, err
	}
	return h.store(form, files, h.uploads, randomName)
}

// HandleStorage stores files from any field under their original names.
func (h *FileHandler) HandleStorage(c *fiber.Ctx) (any, error) {
	form, err := parseForm(c)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var files []fieldFile
	for _, field := range fields {
		for _, fh := range form.File[field] {
			files = append(files, fieldFile{field: field, header: fh})
		}
	}
	if len(files) == 0 {
		return nil, apperror.BadRequest("at least one file is required")
	}
	return h.store(form, files, h.named, originalName)
}

// HandleValidate stores one JPEG of at most 1000 bytes from the "aaa" field.
func (h *FileHandler) HandleValidate(c *fiber.Ctx) (any, error) {
	form, err := parseForm(c)
	if err != nil {
		return nil, err
	}
	files, err := onlyField(form, validateField, 1)
	if err != nil {
		return nil, err
	}

	fh := files[0].header
	var violations []apperror.FieldViolation
	if fh.Size > maxValidateSize {
		violations = append(violations, apperror.FieldViolation{
			Field:   validateField,
			Rule:    "maxSize",
			Message: fmt.Sprintf("file size must not exceed %d bytes", maxValidateSize),
		})
	}
	mtype, err := sniff(fh)
	if err != nil {
		return nil, h.internal("failed to read upload", err)
	}
	if !mtype.Is(validateMIMEType) {
		violations = append(violations, apperror.FieldViolation{
			Field:   validateField,
			Rule:    "fileType",
			Message: fmt.Sprintf("file type must be %s", validateMIMEType),
		})
	}
	if len(violations) > 0 {
		messages := violations[0].Message
		for _, v := range violations[1:] {
			messages += "; " + v.Message
		}
		return nil, apperror.Validation(messages, violations)
	}

	return h.store(form, files, h.uploads, randomName)
}

type fieldFile struct {
	field  string
	header *multipart.FileHeader
}

type namer func(ff fieldFile) (string, error)

func randomName(fieldFile) (string, error) {
	return uuid.NewString(), nil
}

func originalName(ff fieldFile) (string, error) {
	base := storage.BaseName(ff.header.Filename)
	if base == "" {
		return "", apperror.BadRequest(fmt.Sprintf("file in field %s has no usable name", ff.field))
	}
	return fmt.Sprintf("%s-%d-%s", ff.field, time.Now().UnixMilli(), base), nil
}

func (h *FileHandler) store(form *multipart.Form, files []fieldFile, dst *storage.LocalBlobStore, name namer) (*UploadResult, error) {
	result := &UploadResult{
		Files: make([]StoredFile, 0, len(files)),
		Body:  formValues(form),
	}

	for _, ff := range files {
		filename, err := name(ff)
		if err != nil {
			return nil, err
		}
		mtype, err := sniff(ff.header)
		if err != nil {
			return nil, h.internal("failed to read upload", err)
		}

		src, err := ff.header.Open()
		if err != nil {
			return nil, h.internal("failed to read upload", err)
		}
		_, size, err := dst.Save(filename, src)
		src.Close()
		if err != nil {
			return nil, h.internal("failed to store upload", err)
		}

		h.logger.WithFields(logrus.Fields{
			"field":    ff.field,
			"filename": filename,
			"size":     size,
			"dir":      dst.Dir(),
		}).Info("File stored")

		result.Files = append(result.Files, StoredFile{
			Field:        ff.field,
			OriginalName: ff.header.Filename,
			Filename:     filename,
			Size:         size,
			MimeType:     mtype.String(),
		})
	}
	return result, nil
}

func (h *FileHandler) internal(message string, cause error) error {
	h.logger.WithError(cause).Error(message)
	return apperror.Internal(message, cause)
}

func parseForm(c *fiber.Ctx) (*multipart.Form, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return nil, err
		}
		return nil, apperror.Wrap(apperror.CodeBadRequest, "request must be multipart/form-data", err)
	}
	return form, nil
}

// onlyField returns the files of field, rejecting file parts under any other
// field name and more than limit files.
func onlyField(form *multipart.Form, field string, limit int) ([]fieldFile, error) {
	for name := range form.File {
		if name != field {
			return nil, apperror.BadRequest(fmt.Sprintf("unexpected file field %s", name))
		}
	}

	headers := form.File[field]
	switch {
	case len(headers) == 0:
		return nil, apperror.BadRequest(fmt.Sprintf("file field %s is required", field))
	case len(headers) > limit:
		return nil, apperror.BadRequest(fmt.Sprintf("too many files in field %s: at most %d allowed", field, limit))
	}

	files := make([]fieldFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, fieldFile{field: field, header: fh})
	}
	return files, nil
}

func formValues(form *multipart.Form) map[string]string {
	body := make(map[string]string, len(form.Value))
	for key, values := range form.Value {
		if len(values) > 0 {
			body[key] = values[0]
		}
	}
	return body
}

func sniff(fh *multipart.FileHeader) (*mimetype.MIME, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return mimetype.DetectReader(f)
}
