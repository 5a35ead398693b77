// Package web serves the browser form for running searches, viewing the lead
// store and exporting it.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/FranksOps/leadfinder/internal/config"
	"github.com/FranksOps/leadfinder/internal/extract"
	"github.com/FranksOps/leadfinder/internal/lead"
	"github.com/FranksOps/leadfinder/internal/leadstore"
	"github.com/FranksOps/leadfinder/internal/metrics"
	"github.com/FranksOps/leadfinder/internal/pipeline"
	"github.com/FranksOps/leadfinder/internal/report"
	"github.com/FranksOps/leadfinder/internal/serp"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// DefaultQuery prefills the search form.
const DefaultQuery = "gift wholesalers gauteng"

// PreviewRows is how many of the newest rows the search page shows.
const PreviewRows = 5

//go:embed templates/*.html
var templateFS embed.FS

// Runner runs one search-and-append.
type Runner interface {
	Run(ctx context.Context, query string, mode serp.Mode) (pipeline.Report, error)
}

// Store is the part of the lead store the pages need.
type Store interface {
	List(ctx context.Context) ([]lead.Lead, bool, error)
	ExportAndReset(ctx context.Context) (leadstore.ExportResult, error)
	ExportPath() string
}

// Config wires a Server.
type Config struct {
	Runner    Runner
	Store     Store
	Mode      serp.Mode
	RateLimit config.RateLimit
	Logger    *slog.Logger
}

// Server is the echo application.
type Server struct {
	e      *echo.Echo
	runner Runner
	store  Store
	mode   serp.Mode
	logger *slog.Logger
}

type renderer struct {
	tmpl *template.Template
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

// New builds the routes.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = serp.ModeExpanded
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	s := &Server{
		e:      echo.New(),
		runner: cfg.Runner,
		store:  cfg.Store,
		mode:   cfg.Mode,
		logger: cfg.Logger,
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Renderer = &renderer{tmpl: tmpl}

	s.e.Use(RequestID())
	s.e.Use(Logging(cfg.Logger))
	s.e.Use(echoMiddleware.Recover())

	s.e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/search")
	})
	s.e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	s.e.GET("/search", s.searchForm)
	s.e.POST("/search", s.runSearch, SearchRateLimiter(cfg.RateLimit))
	s.e.GET("/leads", s.listLeads)
	s.e.POST("/export", s.exportLeads)
	s.e.GET("/export/download", s.downloadExport)

	return s, nil
}

// ServeHTTP lets the server be mounted or tested directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("web server listening", "addr", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

type searchPage struct {
	Query   string
	Ran     bool
	Added   int
	Log     []string
	Preview []lead.Lead
	Error   string
}

func (s *Server) searchForm(c echo.Context) error {
	return c.Render(http.StatusOK, "search.html", searchPage{Query: DefaultQuery})
}

func (s *Server) runSearch(c echo.Context) error {
	page := searchPage{Query: c.FormValue("query")}
	if page.Query == "" {
		page.Error = "Enter a search query."
		return c.Render(http.StatusBadRequest, "search.html", page)
	}

	rep, err := s.runner.Run(c.Request().Context(), page.Query, s.mode)
	if err != nil {
		s.logger.Error("search failed", "request_id", RequestIDFromContext(c), "query", page.Query, "err", err)
		page.Error = "Search failed: " + err.Error()
		return c.Render(http.StatusInternalServerError, "search.html", page)
	}

	page.Ran = true
	page.Added = len(rep.Rows)
	page.Log = extractionLog(rep.Pages)
	page.Preview = leadstore.Tail(rep.Rows, PreviewRows)
	return c.Render(http.StatusOK, "search.html", page)
}

func extractionLog(pages []extract.Result) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if len(p.Emails) > 0 {
			out = append(out, fmt.Sprintf("✅ Found %d email(s) at %s", len(p.Emails), p.URL))
		} else {
			out = append(out, fmt.Sprintf("❌ No email at %s", p.URL))
		}
	}
	return out
}

type leadsPage struct {
	Exists  bool
	Rows    []lead.Lead
	Summary report.Summary
	Error   string
}

func (s *Server) listLeads(c echo.Context) error {
	rows, ok, err := s.store.List(c.Request().Context())
	if err != nil {
		s.logger.Warn("could not read lead store", "request_id", RequestIDFromContext(c), "err", err)
		return c.Render(http.StatusOK, "leads.html", leadsPage{Error: err.Error()})
	}
	return c.Render(http.StatusOK, "leads.html", leadsPage{
		Exists:  ok,
		Rows:    rows,
		Summary: report.GenerateSummary(rows, time.Now()),
	})
}

type exportPage struct {
	Result leadstore.ExportResult
	Error  string
}

func (s *Server) exportLeads(c echo.Context) error {
	res, err := s.store.ExportAndReset(c.Request().Context())
	if err != nil {
		s.logger.Error("export failed", "request_id", RequestIDFromContext(c), "err", err)
		return c.Render(http.StatusInternalServerError, "export.html", exportPage{Error: err.Error()})
	}
	return c.Render(http.StatusOK, "export.html", exportPage{Result: res})
}

func (s *Server) downloadExport(c echo.Context) error {
	path := s.store.ExportPath()
	if _, err := os.Stat(path); err != nil {
		return c.String(http.StatusNotFound, "No export available.")
	}
	return c.Attachment(path, filepath.Base(path))
}
