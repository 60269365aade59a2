package transport

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/ds124wfegd/coloringbook/internal/pkg/normalizer"
	"github.com/ds124wfegd/coloringbook/internal/service"
	"github.com/ds124wfegd/coloringbook/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// multipartOverhead is allowed on top of the upload limit for form fields
// and part headers.
const multipartOverhead = 1 << 20

func (h *ConversionHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

func (h *ConversionHandler) GetFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"extensions":       normalizer.SupportedExtensions(),
		"max_upload_bytes": h.maxUploadBytes,
	})
}

func (h *ConversionHandler) CreateConversion(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(c, entity.ErrTooLarge, nil)
			return
		}
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "No image file provided"})
		return
	}

	rotate, err := strconv.Atoi(c.DefaultPostForm("rotate", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "rotate must be an integer number of degrees"})
		return
	}

	async := false
	if v := c.PostForm("async"); v != "" {
		async, err = strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "async must be true or false"})
			return
		}
	}

	src, err := file.Open()
	if err != nil {
		writeError(c, err, nil)
		return
	}
	defer src.Close()

	conversion, err := h.service.Submit(c.Request.Context(), &service.Upload{
		Filename: file.Filename,
		Size:     file.Size,
		Body:     src,
		Theme:    c.PostForm("theme"),
		Rotate:   rotate,
		Async:    async,
	})
	if err != nil {
		writeError(c, err, conversion)
		return
	}

	status := http.StatusAccepted
	if conversion.Status == entity.StatusCompleted {
		status = http.StatusCreated
	}
	c.JSON(status, toResponse(conversion))
}

func (h *ConversionHandler) GetConversion(c *gin.Context) {
	conversion, err := h.service.GetConversion(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, toResponse(conversion))
}

func (h *ConversionHandler) GetResult(c *gin.Context) {
	rc, conversion, err := h.service.OpenResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, conversion)
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": downloadName(conversion.OriginalName),
	})
	c.DataFromReader(http.StatusOK, -1, "image/jpeg", rc, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (h *ConversionHandler) DeleteConversion(c *gin.Context) {
	if err := h.service.DeleteConversion(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversion deleted successfully"})
}

func toResponse(c *entity.Conversion) entity.ConversionResponse {
	resp := entity.ConversionResponse{
		ID:     c.ID,
		Status: c.Status,
		Theme:  c.Theme,
	}
	switch c.Status {
	case entity.StatusCompleted:
		resp.ResultURL = "/api/v1/conversions/" + c.ID + "/result"
	case entity.StatusFailed:
		resp.ErrorKind = c.ErrorKind
		resp.Message = c.ErrorKind.UserMessage()
	}
	return resp
}

// downloadName builds "coloring_book_<name>.jpg" from the uploaded name.
func downloadName(original string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if base == "" || base == "." {
		base = "image"
	}
	return "coloring_book_" + base + ".jpg"
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrResultNotReady):
		return http.StatusConflict
	}

	switch entity.KindOf(err) {
	case entity.KindUnsupportedFormat:
		return http.StatusBadRequest
	case entity.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case entity.KindUnreadableImage:
		return http.StatusUnprocessableEntity
	case entity.KindGeneration:
		return http.StatusBadGateway
	case entity.KindMissingCredential:
		return http.StatusServiceUnavailable
	case entity.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the user-facing message for err. Internal
// details stay in the log.
func writeError(c *gin.Context, err error, conversion *entity.Conversion) {
	status := statusFor(err)
	kind := entity.KindOf(err)

	msg := kind.UserMessage()
	if errors.Is(err, entity.ErrResultNotReady) {
		msg = "The conversion result is not ready yet."
		kind = entity.KindNone
	}

	resp := entity.ErrorResponse{Error: msg, Kind: kind}
	if conversion != nil {
		resp.ID = conversion.ID
	}

	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("kind", kind).Error("request failed")
	}
	c.Error(err)
	c.JSON(status, resp)
}
