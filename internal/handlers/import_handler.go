package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"catalog-service/internal/progress"
)

// allowedUploadTypes are the content types browsers send for spreadsheet
// uploads. Some clients misreport, so the file extension is a fallback.
var allowedUploadTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel":     true,
	"application/excel":            true,
	"application/x-excel":          true,
	"application/x-msexcel":        true,
}

// ImportHandler accepts spreadsheet uploads and streams job progress to
// clients over SSE. Upload and stream are correlated only by the session id
// the client picks.
type ImportHandler struct {
	runner    *importer.Runner
	registry  *progress.Registry
	jobs      *sync.WaitGroup
	logger    *logrus.Logger
	keepAlive time.Duration
}

func NewImportHandler(runner *importer.Runner, registry *progress.Registry, jobs *sync.WaitGroup, logger *logrus.Logger, keepAlive time.Duration) *ImportHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &ImportHandler{
		runner:    runner,
		registry:  registry,
		jobs:      jobs,
		logger:    logger,
		keepAlive: keepAlive,
	}
}

// ImportProducts godoc
// @Summary Import products from a spreadsheet
// @Description Accepts an .xlsx/.xls upload and starts a background import job. Progress is streamed separately via the SSE endpoint using the X-Session-ID value.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param X-Session-ID header string true "Client-chosen session id for progress correlation"
// @Param excel formData file true "Spreadsheet file"
// @Success 202 {object} models.AcceptedResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/import [post]
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "MISSING_SESSION_ID", Message: "X-Session-ID header is required"},
		})
		return
	}

	file, err := c.FormFile("excel")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "MISSING_FILE", Message: "No file uploaded in field 'excel'"},
		})
		return
	}

	contentType := file.Header.Get("Content-Type")
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedUploadTypes[contentType] && ext != ".xlsx" && ext != ".xls" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_FILE_TYPE", Message: "File must be an Excel spreadsheet (.xlsx or .xls)"},
		})
		return
	}

	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("import_%s_%d%s", sessionID, time.Now().UnixNano(), ext))
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		os.Remove(tempPath)
		h.logger.WithError(err).Error("Failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "UPLOAD_FAILED", Message: "Failed to store uploaded file"},
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"filename":   file.Filename,
		"size":       file.Size,
	}).Info("Import job accepted")

	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		h.runner.Run(context.Background(), sessionID, tempPath)
	}()

	c.JSON(http.StatusAccepted, models.AcceptedResponse{
		Message:   "Import started. Connect to the progress stream for updates.",
		SessionID: sessionID,
	})
}

// StreamProgress godoc
// @Summary Stream import progress over SSE
// @Description Server-sent events for one import session. Emits a connected event immediately, then progress events until a terminal complete or error event.
// @Tags import
// @Produce text/event-stream
// @Param sessionId path string true "Session id used on upload"
// @Router /products/import/progress/{sessionId} [get]
func (h *ImportHandler) StreamProgress(c *gin.Context) {
	sessionID := c.Param("sessionId")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "STREAMING_UNSUPPORTED", Message: "Streaming is not supported"},
		})
		return
	}

	ch := h.registry.Register(sessionID)
	defer h.registry.Unregister(sessionID, ch)

	writeEvent(c, progress.Connected())
	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case event, open := <-ch:
			if !open {
				return
			}
			writeEvent(c, event)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeEvent(c *gin.Context, event progress.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
}
