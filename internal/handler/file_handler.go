package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Niraj-Kamdar/datastore/internal/service"
	"github.com/Niraj-Kamdar/datastore/pkg/response"
)

// FileHandler exposes the transfer endpoints. Each one claims its task and
// then streams under its control, so pause/resume/abort issued through
// TaskHandler interleave at chunk boundaries.
type FileHandler struct {
	datastore service.DatastoreService
	log       *zap.Logger
}

func NewFileHandler(datastore service.DatastoreService, log *zap.Logger) *FileHandler {
	return &FileHandler{datastore: datastore, log: log}
}

// Upload streams a multipart file into the user's data directory under
// control of the task in the path.
func (h *FileHandler) Upload(c *gin.Context) {
	taskID := c.Param("task_id")
	user, err := getUserFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file: "+err.Error())
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file: "+err.Error())
		return
	}
	defer src.Close()

	err = h.datastore.Upload(c.Request.Context(), taskID, user.Email, fileHeader.Filename, src)
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, fmt.Sprintf("Task: %s is aborted or invalid!", taskID))
	case errors.Is(err, service.ErrTaskAssigned):
		response.Conflict(c, fmt.Sprintf("Task: %s is already assigned!", taskID))
	case errors.Is(err, service.ErrTaskAborted):
		response.NotFound(c, fmt.Sprintf("Task: %s is aborted!", taskID))
	case err != nil:
		h.log.Error("upload failed", zap.String("task_id", taskID), zap.Error(err))
		response.InternalError(c, "upload failed")
	default:
		response.OK(c, fmt.Sprintf("File: %s uploaded successfully!", fileHeader.Filename))
	}
}

// Download packages the user's files matching the query into a zip archive
// and streams it chunk by chunk under control of the task in the path.
func (h *FileHandler) Download(c *gin.Context) {
	taskID := c.Param("task_id")
	user, err := getUserFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	query, err := fileQueryFromRequest(
		c.DefaultQuery("filename", "*"),
		c.Query("from_date"),
		c.Query("to_date"),
	)
	if err != nil {
		response.BadRequest(c, "invalid date: "+err.Error())
		return
	}

	archive, err := h.datastore.PrepareArchive(c.Request.Context(), taskID, user.Email, query)
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, fmt.Sprintf("Task: %s is aborted or invalid!", taskID))
		return
	case errors.Is(err, service.ErrTaskAssigned):
		response.Conflict(c, fmt.Sprintf("Task: %s is already assigned!", taskID))
		return
	case errors.Is(err, service.ErrBadPattern):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		h.log.Error("archive preparation failed", zap.String("task_id", taskID), zap.Error(err))
		response.InternalError(c, "download failed")
		return
	}

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%s", archive.Name))
	c.Status(http.StatusOK)

	// The response is already streaming; an abort or failure past this
	// point can only cut the stream short.
	err = h.datastore.StreamArchive(c.Request.Context(), taskID, archive, flushWriter{c.Writer})
	if err != nil && !errors.Is(err, service.ErrTaskAborted) {
		h.log.Error("archive streaming failed", zap.String("task_id", taskID), zap.Error(err))
	}
}

type DeleteFilesRequest struct {
	Filename string `json:"filename"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

// Delete removes the user's files matching the query, one per loop
// iteration under control of the task in the path.
func (h *FileHandler) Delete(c *gin.Context) {
	taskID := c.Param("task_id")
	user, err := getUserFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	req := DeleteFilesRequest{Filename: "*"}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}
	query, err := fileQueryFromRequest(req.Filename, req.FromDate, req.ToDate)
	if err != nil {
		response.BadRequest(c, "invalid date: "+err.Error())
		return
	}

	err = h.datastore.Delete(c.Request.Context(), taskID, user.Email, query)
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, fmt.Sprintf("Task: %s is aborted or invalid!", taskID))
	case errors.Is(err, service.ErrTaskAssigned):
		response.Conflict(c, fmt.Sprintf("Task: %s is already assigned!", taskID))
	case errors.Is(err, service.ErrTaskAborted):
		response.NotFound(c, fmt.Sprintf("Task: %s is aborted!", taskID))
	case errors.Is(err, service.ErrBadPattern):
		response.BadRequest(c, err.Error())
	case err != nil:
		h.log.Error("delete failed", zap.String("task_id", taskID), zap.Error(err))
		response.InternalError(c, "delete failed")
	default:
		response.OK(c, "Files deleted successfully!")
	}
}

func fileQueryFromRequest(pattern, fromDate, toDate string) (service.FileQuery, error) {
	from, err := parseDate(fromDate)
	if err != nil {
		return service.FileQuery{}, err
	}
	to, err := parseDate(toDate)
	if err != nil {
		return service.FileQuery{}, err
	}
	return service.FileQuery{Pattern: pattern, FromDate: from, ToDate: to}, nil
}

// flushWriter pushes every chunk to the client immediately so a paused
// transfer does not sit in the response buffer.
type flushWriter struct {
	w gin.ResponseWriter
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err == nil {
		fw.w.Flush()
	}
	return n, err
}

var _ io.Writer = flushWriter{}
