// Package web provides the catalog's HTTP server: routing, templates,
// sessions and the background job scheduler.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/thucvatbm/species-catalog/config"
	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/storage"
	"github.com/thucvatbm/species-catalog/util/common"
	"github.com/thucvatbm/species-catalog/util/metrics"
	"github.com/thucvatbm/species-catalog/web/controller"
	"github.com/thucvatbm/species-catalog/web/job"
	"github.com/thucvatbm/species-catalog/web/locale"
	"github.com/thucvatbm/species-catalog/web/middleware"
	"github.com/thucvatbm/species-catalog/web/service"
	"github.com/thucvatbm/species-catalog/web/session"
)

//go:embed html/*
var htmlFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

const shutdownTimeout = 10 * time.Second

// Server is the catalog web server with its controllers and scheduled jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	store   storage.Store
	uploads *service.UploadService

	index   *controller.IndexController
	catalog *controller.CatalogController
	species *controller.SpeciesController

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server that keeps uploads in store.
func NewServer(store storage.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		store:   store,
		uploads: service.NewUploadService(store),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// getHtmlFiles lists the templates on disk. Used only in debug mode so
// template edits show up without a rebuild.
func (s *Server) getHtmlFiles() ([]string, error) {
	files := make([]string, 0)
	err := fs.WalkDir(os.DirFS("."), "web/html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// getHtmlTemplate parses the embedded templates.
func (s *Server) getHtmlTemplate() (*template.Template, error) {
	return template.New("").ParseFS(htmlFS, "html/*.html")
}

func (s *Server) loadTemplates(engine *gin.Engine) error {
	if config.IsDebug() {
		if files, err := s.getHtmlFiles(); err == nil && len(files) > 0 {
			engine.LoadHTMLFiles(files...)
			return nil
		}
	}
	tpl, err := s.getHtmlTemplate()
	if err != nil {
		return err
	}
	engine.SetHTMLTemplate(tpl)
	return nil
}

// Handler builds the gin engine serving every catalog route.
func (s *Server) Handler() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	if err := locale.InitLocalizer(i18nFS, "translation"); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.SecurityHeaders())
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/uploads/", "/export.csv", "/metrics"}),
	))
	engine.Use(session.Middleware(config.GetSecretKey()))
	engine.Use(middleware.CSRF())
	engine.Use(locale.LocalizerMiddleware())

	if err := s.loadTemplates(engine); err != nil {
		return nil, err
	}

	if config.IsMetricsEnabled() {
		engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	g := engine.Group("/")
	s.index = controller.NewIndexController(g)
	s.catalog = controller.NewCatalogController(g, s.uploads)
	s.species = controller.NewSpeciesController(g, s.uploads)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

// startTask schedules the background jobs.
func (s *Server) startTask() {
	spec := config.GetOrphanReportCron()
	if spec == "" || spec == "off" {
		logger.Info("orphan upload report disabled")
		return
	}
	if _, err := s.cron.AddJob(spec, job.NewOrphanUploadJob(s.ctx, s.store)); err != nil {
		logger.Warningf("Add OrphanUploadJob error[%s], Runtime[%s] invalid", err, spec)
		return
	}
	logger.Infof("orphan upload report scheduled at %s", spec)
}

// Start binds the listener and serves in the background.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	s.cron = cron.New(cron.WithLocation(time.Local))
	s.cron.Start()

	engine, err := s.Handler()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web server stopped:", err)
		}
	}()

	s.startTask()
	return nil
}

// Stop shuts down the HTTP server and the job scheduler.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	var err1, err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		err2 = s.listener.Close()
		if errors.Is(err2, net.ErrClosed) {
			err2 = nil
		}
	}
	return common.Combine(err1, err2)
}

