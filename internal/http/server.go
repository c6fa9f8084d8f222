package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"whiteboard/internal/app"
	"whiteboard/internal/config"
	"whiteboard/internal/display"
	"whiteboard/internal/services"
	"whiteboard/internal/storage"
)

const (
	shutdownTimeout = 30 * time.Second
	// generated decks are not bounded by the upload limit
	maxSlideBytes = 200 * 1024 * 1024
)

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	coord  *app.Coordinator
	log    *zap.Logger
}

func NewServer(cfg config.Config, log *zap.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	fm, err := storage.NewFileManager(cfg.DataDir, maxSlideBytes)
	if err != nil {
		return nil, fmt.Errorf("init file manager: %w", err)
	}

	renderer, err := display.NewRenderer(cfg.SanitizeDiagrams)
	if err != nil {
		return nil, fmt.Errorf("init display: %w", err)
	}

	links := services.NewLinkSigner(cfg)
	extractor := services.NewExtractorService(cfg, fm, links, log)
	handout := services.NewHandoutService()
	coord := app.NewCoordinator(extractor, fm, app.Options{
		SessionTTL:     cfg.SessionTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, log)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(log.Named("access")))
	engine.Use(MaxBodySize(requestBodyLimit(cfg.MaxUploadBytes)))
	engine.Use(CORS([]string{cfg.BaseURL}))

	api := NewAPI(cfg, coord, fm, links, handout, renderer, log)
	if err := registerRoutes(engine, api); err != nil {
		return nil, err
	}

	return &Server{engine: engine, cfg: cfg, coord: coord, log: log}, nil
}

// Run serves until ctx is cancelled, then drains requests and background
// extraction work.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.Port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", srv.Addr), zap.String("extractor", s.cfg.ExtractorURL))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	if err := s.coord.Close(shutdownCtx); err != nil {
		return fmt.Errorf("wait for background work: %w", err)
	}
	return nil
}

// requestBodyLimit leaves room for base64 inflation of webcam frames and
// multipart framing.
func requestBodyLimit(maxUpload int64) int64 {
	if maxUpload <= 0 {
		return 0
	}
	return maxUpload*4/3 + 1024*1024
}
