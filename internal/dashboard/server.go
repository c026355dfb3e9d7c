// Package dashboard serves the web UI and JSON API.
//
// The dashboard reads the published monitor analysis for display and
// writes only through the profile editor, which merges into the store.
package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/xtxerr/cardiowatch/config"
	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/export"
	"github.com/xtxerr/cardiowatch/internal/logging"
	"github.com/xtxerr/cardiowatch/internal/monitor"
	"github.com/xtxerr/cardiowatch/internal/report"
	"github.com/xtxerr/cardiowatch/internal/store"
	"github.com/xtxerr/cardiowatch/internal/validation"
)

var log = logging.Component("dashboard")

// ProfileStore is the part of the record store the dashboard uses.
type ProfileStore interface {
	Read() (*store.Document, error)
	MergeProfile(partial store.Profile) error
}

// Analyzer publishes analyses. *monitor.Monitor implements it.
type Analyzer interface {
	Latest() *monitor.Analysis
	Refresh(ctx context.Context) (*monitor.Analysis, error)
	Reload(ctx context.Context) (*monitor.Analysis, error)
	Alerts() []monitor.Alert
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds dashboard configuration.
type Config struct {
	Listen          string
	TableRows       int
	MinSamples      int
	RefreshInterval time.Duration
	ShutdownTimeout time.Duration
	Export          export.Options

	// Now is the clock used for report dates. Nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns default dashboard configuration.
func DefaultConfig() Config {
	return Config{
		Listen:          config.DefaultListenAddress,
		TableRows:       config.DefaultTableRows,
		MinSamples:      config.DefaultMinSamples,
		RefreshInterval: config.DefaultRefreshInterval,
		ShutdownTimeout: config.DefaultShutdownTimeout,
		Export:          export.DefaultOptions(),
	}
}

// =============================================================================
// Server
// =============================================================================

// Server is the dashboard HTTP server.
type Server struct {
	cfg   Config
	store ProfileStore
	mon   Analyzer
	app   *fiber.App
}

// New creates a server and registers its routes.
func New(cfg Config, st ProfileStore, mon Analyzer) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{cfg: cfg, store: st, mon: mon}

	s.app = fiber.New(fiber.Config{
		AppName:               "cardiowatch",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.logRequests)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/", s.handleDashboard)
	s.app.Get("/profile", s.handleProfileForm)
	s.app.Post("/profile", s.handleProfileSubmit)
	s.app.Get("/healthz", s.handleHealth)

	api := s.app.Group("/api")
	api.Get("/analysis", s.handleAnalysis)
	api.Get("/alerts", s.handleAlerts)
	api.Post("/profile", s.handleProfileAPI)
	api.Get("/report.pdf", s.handleReport)
	api.Get("/export.parquet", s.handleExport)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", "addr", s.cfg.Listen)
		errCh <- s.app.Listen(s.cfg.Listen)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	log.Info("dashboard shutting down")
	if err := s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return <-errCh
}

// =============================================================================
// Middleware and errors
// =============================================================================

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = errors.ErrorToStatus(err)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	id, _ := c.Locals("requestid").(string)
	ctx := logging.ContextWithRequestID(c.UserContext(), id)
	logging.WithContext(ctx).Debug("request",
		"component", "dashboard",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
	)
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := errors.ErrorToStatus(err)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	if status >= fiber.StatusInternalServerError {
		log.Error("request failed", "path", c.Path(), "error", err)
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(status).JSON(fiber.Map{
			"error":   strings.ToLower(strings.ReplaceAll(utils.StatusMessage(status), " ", "_")),
			"message": err.Error(),
		})
	}
	return c.Status(status).SendString(err.Error())
}

// =============================================================================
// Helpers
// =============================================================================

// analysis returns the published analysis, refreshing once if none exists.
func (s *Server) analysis(c *fiber.Ctx) (*monitor.Analysis, error) {
	if a := s.mon.Latest(); a != nil {
		return a, nil
	}
	return s.mon.Refresh(c.UserContext())
}

func render(c *fiber.Ctx, t *template.Template, data any) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return errors.Wrap(err, "render template")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (s *Server) refreshSeconds() int {
	return max(1, int(math.Ceil(s.cfg.RefreshInterval.Seconds())))
}

// =============================================================================
// Pages
// =============================================================================

type dashboardPage struct {
	Title      string
	Refresh    int
	MinSamples int
	Analysis   *monitor.Analysis
	Recent     []monitor.Row
	Chart      chartData
	Alerts     []monitor.Alert
}

func (s *Server) handleDashboard(c *fiber.Ctx) error {
	a, err := s.analysis(c)
	if err != nil {
		return err
	}

	alerts := s.mon.Alerts()
	if len(alerts) > s.cfg.TableRows {
		alerts = alerts[:s.cfg.TableRows]
	}
	return render(c, dashboardTmpl, dashboardPage{
		Title:      "Dashboard",
		Refresh:    s.refreshSeconds(),
		MinSamples: s.cfg.MinSamples,
		Analysis:   a,
		Recent:     a.Recent(s.cfg.TableRows),
		Chart:      buildChart(a.Rows),
		Alerts:     alerts,
	})
}

type profilePage struct {
	Title      string
	Refresh    int
	Name       string
	Age        string
	Conditions string
	Saved      bool
	Error      string
}

func (s *Server) handleProfileForm(c *fiber.Ctx) error {
	doc, err := s.store.Read()
	if err != nil {
		return err
	}
	p := doc.Profile
	age := "0"
	if n, ok := p.Int("age"); ok {
		age = strconv.Itoa(n)
	}
	return render(c, profileTmpl, profilePage{
		Title:      "Profile",
		Name:       p.Text("name"),
		Age:        age,
		Conditions: p.Text("conditions"),
		Saved:      c.Query("saved") == "1",
	})
}

func (s *Server) handleProfileSubmit(c *fiber.Ctx) error {
	page := profilePage{
		Title:      "Profile",
		Name:       strings.TrimSpace(c.FormValue("name")),
		Age:        strings.TrimSpace(c.FormValue("age")),
		Conditions: c.FormValue("conditions"),
	}

	partial, err := parseProfileForm(page.Name, page.Age, page.Conditions)
	if err == nil {
		err = s.store.MergeProfile(partial)
	}
	if err != nil {
		page.Error = "Could not save the profile: " + err.Error()
		c.Status(errors.ErrorToStatus(err))
		return render(c, profileTmpl, page)
	}

	s.refreshAfterWrite(c)
	return c.Redirect("/profile?saved=1", fiber.StatusSeeOther)
}

// parseProfileForm validates the profile editor fields. Conditions are
// stored as a list.
func parseProfileForm(name, age, conditions string) (store.Profile, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	n, err := validation.ParseAge(age)
	if err != nil {
		return nil, err
	}
	return store.Profile{
		"name":       name,
		"age":        n,
		"conditions": validation.SplitConditions(conditions),
	}, nil
}

func (s *Server) refreshAfterWrite(c *fiber.Ctx) {
	if _, err := s.mon.Reload(c.UserContext()); err != nil {
		log.Warn("refresh after profile update failed", "error", err)
	}
}

// =============================================================================
// API
// =============================================================================

func (s *Server) handleHealth(c *fiber.Ctx) error {
	a := s.mon.Latest()
	return c.JSON(fiber.Map{
		"status": "ok",
		"ready":  a != nil && a.Ready,
	})
}

func (s *Server) handleAnalysis(c *fiber.Ctx) error {
	a, err := s.analysis(c)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (s *Server) handleAlerts(c *fiber.Ctx) error {
	return c.JSON(s.mon.Alerts())
}

func (s *Server) handleProfileAPI(c *fiber.Ctx) error {
	var partial store.Profile
	if err := c.BodyParser(&partial); err != nil {
		return errors.NewInvalidValue("body", "", err.Error())
	}
	if len(partial) == 0 {
		return errors.NewMissingField("profile")
	}
	if err := validation.ValidateProfile(partial); err != nil {
		return err
	}
	if err := s.store.MergeProfile(partial); err != nil {
		return err
	}
	s.refreshAfterWrite(c)

	doc, err := s.store.Read()
	if err != nil {
		return err
	}
	return c.JSON(doc.Profile)
}

func (s *Server) handleReport(c *fiber.Ctx) error {
	a, err := s.analysis(c)
	if err != nil {
		return err
	}

	now := s.cfg.Now()
	var buf bytes.Buffer
	if err := report.Generate(&buf, a, now.In(a.GeneratedAt.Location())); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Attachment(fmt.Sprintf("cardiowatch-report-%s.pdf", now.Format("20060102-1504")))
	return c.Send(buf.Bytes())
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	a, err := s.analysis(c)
	if err != nil {
		return err
	}

	opts := s.cfg.Export
	if opts.Location == nil {
		opts.Location = a.GeneratedAt.Location()
	}
	data, err := export.WriteAnalysis(a, opts)
	if err != nil {
		return err
	}

	c.Attachment(fmt.Sprintf("cardiowatch-history-%s.parquet", s.cfg.Now().Format("20060102-1504")))
	c.Set(fiber.HeaderContentType, export.ContentType)
	return c.Send(data)
}
