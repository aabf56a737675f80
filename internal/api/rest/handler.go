package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	app "colony-counter/internal/application"
	"colony-counter/internal/domain/entity"
	"colony-counter/internal/infrastructure/report"
)

// UploadLimits ограничения на загружаемые файлы
type UploadLimits struct {
	MaxSize    int64
	AllowedExt []string
}

type Handler struct {
	counting *app.CountingService
	limits   UploadLimits
	logger   *zap.Logger
}

func NewHandler(counting *app.CountingService, limits UploadLimits, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(limits.AllowedExt) == 0 {
		limits.AllowedExt = entity.SupportedExtensions
	}
	return &Handler{counting: counting, limits: limits, logger: logger}
}

// Upload принимает multipart-поле files и необязательный session_id
func (h *Handler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "expected multipart form with files", err)
		return
	}

	headers := form.File["files"]
	files := make([]app.UploadFile, 0, len(headers))
	for _, fh := range headers {
		if h.limits.MaxSize > 0 && fh.Size > h.limits.MaxSize {
			badRequest(c, fmt.Sprintf("file %s exceeds %d bytes", fh.Filename, h.limits.MaxSize), nil)
			return
		}
		if !h.allowed(fh.Filename) {
			h.fail(c, fmt.Errorf("%w: %s", entity.ErrUnsupportedImage, fh.Filename))
			return
		}

		f, err := fh.Open()
		if err != nil {
			h.fail(c, fmt.Errorf("open %s: %w", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.fail(c, fmt.Errorf("read %s: %w", fh.Filename, err))
			return
		}
		files = append(files, app.UploadFile{Filename: fh.Filename, Data: data})
	}

	out, err := h.counting.Upload(c.Request.Context(), c.PostForm("session_id"), files)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Process запускает детекцию; отсутствующие в теле поля берутся по умолчанию
func (h *Handler) Process(c *gin.Context) {
	params, err := bindParameters(c)
	if err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	withMask, _ := strconv.ParseBool(c.Query("include_mask"))
	out, err := h.counting.Process(c.Request.Context(), c.Param("image_id"), params, withMask)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Overlay отдаёт PNG с обведёнными колониями
func (h *Handler) Overlay(c *gin.Context) {
	data, err := h.counting.Overlay(c.Request.Context(), c.Param("image_id"), nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

type annotationRequest struct {
	ManualAdded   *[]entity.Colony `json:"manual_added"`
	ManualRemoved *[]entity.Colony `json:"manual_removed"`
}

// Annotate заменяет ручные правки изображения
func (h *Handler) Annotate(c *gin.Context) {
	var req annotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", err)
		return
	}

	out, err := h.counting.Annotate(c.Request.Context(), c.Param("image_id"), req.ManualAdded, req.ManualRemoved)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Report отдаёт CSV по всем изображениям сессии
func (h *Handler) Report(c *gin.Context) {
	sessionID := c.Param("session_id")
	rows, err := h.counting.SessionReport(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rows); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="session_%s.csv"`, sessionID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) allowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range h.limits.AllowedExt {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

func bindParameters(c *gin.Context) (entity.Parameters, error) {
	params := entity.DefaultParameters()
	body, err := c.GetRawData()
	if err != nil {
		return params, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(body, &params); err != nil {
		return params, err
	}
	return params, nil
}
