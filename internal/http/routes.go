package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whiteboard/internal/app"
	"whiteboard/internal/capture"
	"whiteboard/internal/config"
	"whiteboard/internal/display"
	"whiteboard/internal/domain"
	"whiteboard/internal/services"
	"whiteboard/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

type API struct {
	cfg     config.Config
	coord   *app.Coordinator
	files   *storage.FileManager
	links   *services.LinkSigner
	handout *services.HandoutService
	display *display.Renderer
	log     *zap.Logger
}

func NewAPI(cfg config.Config, coord *app.Coordinator, fm *storage.FileManager, links *services.LinkSigner, handout *services.HandoutService, renderer *display.Renderer, log *zap.Logger) *API {
	return &API{cfg: cfg, coord: coord, files: fm, links: links, handout: handout, display: renderer, log: log.Named("http")}
}

func registerRoutes(r *gin.Engine, api *API) error {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("parse page templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/api/health", api.handleHealth)

	sess := r.Group("/", api.Session())
	{
		sess.GET("/", api.handleIndex)

		sess.GET("/capture/preview", api.handlePreview)
		sess.POST("/capture/upload", api.handleUpload)
		sess.POST("/capture/webcam/start", api.handleWebcamStart)
		sess.POST("/capture/webcam/snapshot", api.handleWebcamSnapshot)
		sess.POST("/capture/webcam/cancel", api.handleWebcamCancel)
		sess.POST("/capture/reset", api.handleReset)

		sess.POST("/slides", api.handleGenerateSlides)
		sess.GET("/slides/:id", api.handleDownloadSlides)
		sess.GET("/handout.pdf", api.handleHandout)

		sess.GET("/api/state", api.handleState)
		sess.POST("/api/extract", api.handleExtract)
	}

	return nil
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type pageData struct {
	View        app.SessionView
	Display     template.HTML
	Refresh     bool
	MaxUploadMB int64
}

func (a *API) handleIndex(c *gin.Context) {
	view, err := a.coord.View(sessionID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	fragment, err := a.display.HTML(view.Content, view.Status.IsProcessing())
	if err != nil {
		a.log.Error("render display", zap.Error(err))
		respondMessage(c, http.StatusInternalServerError, "unable to render content")
		return
	}

	data := pageData{
		View:        view,
		Display:     fragment,
		Refresh:     view.Status.IsProcessing(),
		MaxUploadMB: a.cfg.MaxUploadBytes / (1024 * 1024),
	}

	c.HTML(http.StatusOK, "page.html", data)
}

// handlePreview serves the captured image. The page links it with the
// preview revision, so each image is fetched once.
func (a *API) handlePreview(c *gin.Context) {
	view, err := a.coord.View(sessionID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if view.Preview == "" {
		respondMessage(c, http.StatusNotFound, "no image captured")
		return
	}

	data, err := view.Preview.Bytes()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, view.Preview.MediaType(), data)
}

// handleUpload never reports a bad file to the page: a failed read leaves
// the status untouched.
func (a *API) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		a.log.Warn("upload without image", zap.Error(err))
		redirectHome(c)
		return
	}

	upload, err := fileHeader.Open()
	if err != nil {
		a.log.Warn("open upload", zap.Error(err))
		redirectHome(c)
		return
	}
	defer upload.Close()

	if err := a.coord.Upload(sessionID(c), upload); err != nil {
		a.log.Warn("upload ignored", zap.String("filename", fileHeader.Filename), zap.Error(err))
	}
	redirectHome(c)
}

func (a *API) handleWebcamStart(c *gin.Context) {
	if err := a.coord.StartWebcam(sessionID(c), capture.NewFrameCamera()); err != nil {
		respondCaptureError(c, err)
		return
	}
	redirectHome(c)
}

func (a *API) handleWebcamSnapshot(c *gin.Context) {
	frame := domain.EncodedImage(c.PostForm("frame"))
	if frame == "" {
		respondMessage(c, http.StatusBadRequest, "missing frame")
		return
	}

	if err := a.coord.Snapshot(c.Request.Context(), sessionID(c), frame); err != nil {
		respondCaptureError(c, err)
		return
	}
	redirectHome(c)
}

func (a *API) handleWebcamCancel(c *gin.Context) {
	if err := a.coord.CancelWebcam(sessionID(c)); err != nil {
		respondCaptureError(c, err)
		return
	}
	redirectHome(c)
}

func (a *API) handleReset(c *gin.Context) {
	if err := a.coord.ResetCapture(sessionID(c)); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	redirectHome(c)
}

func (a *API) handleGenerateSlides(c *gin.Context) {
	err := a.coord.SubmitGenerateSlides(sessionID(c))
	switch {
	case errors.Is(err, app.ErrNoContent), errors.Is(err, app.ErrBusy):
		respondError(c, http.StatusConflict, err)
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	redirectHome(c)
}

func (a *API) handleDownloadSlides(c *gin.Context) {
	slideID := c.Param("id")
	expiresParam := c.Query("exp")
	signature := c.Query("sig")

	if expiresParam == "" || signature == "" {
		respondMessage(c, http.StatusBadRequest, "missing signature")
		return
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid expiration")
		return
	}

	if expires < time.Now().Unix() {
		respondMessage(c, http.StatusGone, "link expired")
		return
	}

	if !a.links.Validate(c.Request.URL.Path, expires, signature) {
		respondMessage(c, http.StatusForbidden, "invalid signature")
		return
	}

	if !a.coord.OwnsSlides(sessionID(c), slideID) {
		respondMessage(c, http.StatusNotFound, "slides not found")
		return
	}

	f, err := a.files.OpenSlides(slideID)
	if err != nil {
		if errors.Is(err, storage.ErrSlideMissing) || errors.Is(err, storage.ErrInvalidID) {
			respondMessage(c, http.StatusNotFound, "slides not found")
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), pptxContentType, f, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, domain.DefaultSlideFilename),
	})
}

func (a *API) handleHandout(c *gin.Context) {
	view, err := a.coord.View(sessionID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if view.Content == nil || view.Content.Empty() {
		respondMessage(c, http.StatusNotFound, "no content extracted yet")
		return
	}

	var buf bytes.Buffer
	if err := a.handout.Write(&buf, *view.Content); err != nil {
		a.log.Error("handout failed", zap.Error(err))
		respondMessage(c, http.StatusInternalServerError, "unable to build handout")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="whiteboard.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (a *API) handleState(c *gin.Context) {
	view, err := a.coord.View(sessionID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *API) handleExtract(c *gin.Context) {
	var payload struct {
		Image string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	image := domain.EncodedImage(payload.Image)
	if err := image.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	id := sessionID(c)
	if err := a.coord.Capture(c.Request.Context(), id, image); err != nil {
		if errors.Is(err, app.ErrStale) {
			respondError(c, http.StatusConflict, err)
			return
		}
		respondMessage(c, http.StatusBadGateway, domain.MessageExtractFailed)
		return
	}

	view, err := a.coord.View(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func redirectHome(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}

func respondCaptureError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, capture.ErrWrongMode), errors.Is(err, capture.ErrNoCamera):
		respondError(c, http.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidDataURL), errors.Is(err, capture.ErrEmptyCapture),
		errors.Is(err, capture.ErrNoFrame):
		respondError(c, http.StatusBadRequest, err)
	default:
		respondError(c, http.StatusInternalServerError, err)
	}
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
