package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/padel-scheduler/internal/auth"
	"github.com/example/padel-scheduler/internal/booking"
	"github.com/example/padel-scheduler/internal/history"
	"github.com/example/padel-scheduler/internal/jobs"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server exposes the booking engine over a small authenticated surface: a
// JSON API for automation and a minimal operator UI. Validation of wire
// payloads happens here; the core only sees well-formed requests.
type Server struct {
	Jobs     *jobs.Manager
	Defaults *DefaultsStore
	History  *history.Store // optional
	Sessions *SessionManager
	API      auth.Credentials
	Log      *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "padelsched"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(func(next http.Handler) http.Handler {
			return auth.RequireBasic(s.API, next)
		})
		api.Post("/book", s.handleBook)
		api.Get("/status", s.handleStatus)
		api.Get("/config", s.handleConfigGet)
		api.Post("/config", s.handleConfigPut)
	})

	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Group(func(ui chi.Router) {
		ui.Use(s.Sessions.RequireSession)
		ui.Get("/", s.handleHome)
		ui.Post("/book", s.handleBookForm)
	})

	return r
}

// bookRequest is the wire shape of POST /api/book and the UI form. Fields
// left empty fall back to the stored defaults.
type bookRequest struct {
	LoginURL         string   `json:"login_url"`
	BookingDate      string   `json:"booking_date"`
	StartTime        string   `json:"start_time"`
	DurationHours    float64  `json:"duration_hours"`
	BookerFirstName  string   `json:"booker_first_name"`
	PlayerCandidates []string `json:"player_candidates"`
	DeviceMode       string   `json:"device_mode"`
}

func (b bookRequest) toBookingRequest(d Defaults) (booking.Request, error) {
	if b.LoginURL == "" {
		b.LoginURL = d.LoginURL
	}
	if b.BookingDate == "" {
		b.BookingDate = d.BookingDate
	}
	if b.StartTime == "" {
		b.StartTime = d.StartTime
	}
	if b.DurationHours == 0 {
		b.DurationHours = d.DurationHours
	}
	if b.BookerFirstName == "" {
		b.BookerFirstName = d.BookerFirstName
	}
	if len(b.PlayerCandidates) == 0 {
		b.PlayerCandidates = d.PlayerCandidates
	}
	if b.DeviceMode == "" {
		b.DeviceMode = d.DeviceMode
	}
	if b.DeviceMode == "" {
		b.DeviceMode = string(booking.DeviceMobile)
	}

	date, err := booking.ParseDate(b.BookingDate)
	if err != nil {
		return booking.Request{}, booking.Errf(booking.KindInvalidRequest, "invalid booking_date %q (want YYYY-MM-DD)", b.BookingDate)
	}
	return booking.Request{
		LoginURL:        b.LoginURL,
		Date:            date,
		StartTime:       b.StartTime,
		DurationHours:   b.DurationHours,
		BookerFirstName: b.BookerFirstName,
		Candidates:      b.PlayerCandidates,
		DeviceMode:      booking.DeviceMode(b.DeviceMode),
	}, nil
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var in bookRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", codeInvalidInput)
		return
	}
	s.startBooking(w, in)
}

func (s *Server) startBooking(w http.ResponseWriter, in bookRequest) {
	req, err := in.toBookingRequest(s.Defaults.Get())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), codeInvalidInput)
		return
	}
	job, err := s.Jobs.Start(req)
	if err != nil {
		if errors.Is(err, jobs.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err.Error(), codeAlreadyRunning)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), codeInvalidInput)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "started",
		"job_id":     job.ID,
		"started_at": job.StartedAt,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Jobs.Snapshot())
}

func (s *Server) handleConfigGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Defaults.Get())
}

func (s *Server) handleConfigPut(w http.ResponseWriter, r *http.Request) {
	var d Defaults
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", codeInvalidInput)
		return
	}
	if err := s.Defaults.Put(d); err != nil {
		s.logger().Error("saving defaults", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save configuration", codeInternalError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// --- operator UI ---

type tmplData struct {
	Title    string
	User     string
	Flash    string
	Job      jobs.Job
	Defaults Defaults
	Attempts []history.Attempt
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "templates/login.html", tmplData{Title: "Login"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	if !s.API.Check(username, r.FormValue("password")) {
		s.render(w, "templates/login.html", tmplData{Title: "Login", Flash: "Invalid username/password"})
		return
	}
	if err := s.Sessions.Set(w, r, username); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	user, _ := s.Sessions.User(r)
	data := tmplData{
		Title:    "Court booking",
		User:     user,
		Flash:    r.URL.Query().Get("flash"),
		Job:      s.Jobs.Snapshot(),
		Defaults: s.Defaults.Get(),
	}
	if s.History != nil {
		attempts, err := s.History.Recent(r.Context(), 20)
		if err != nil {
			s.logger().Warn("loading attempt history", zap.Error(err))
		} else {
			data.Attempts = attempts
		}
	}
	s.render(w, "templates/status.html", data)
}

func (s *Server) handleBookForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in := bookRequest{
		BookingDate:      strings.TrimSpace(r.FormValue("booking_date")),
		StartTime:        strings.TrimSpace(r.FormValue("start_time")),
		DeviceMode:       strings.TrimSpace(r.FormValue("device_mode")),
		PlayerCandidates: splitCSV(r.FormValue("player_candidates")),
	}
	req, err := in.toBookingRequest(s.Defaults.Get())
	if err != nil {
		http.Redirect(w, r, "/?flash="+template.URLQueryEscaper(err.Error()), http.StatusFound)
		return
	}
	if _, err := s.Jobs.Start(req); err != nil {
		http.Redirect(w, r, "/?flash="+template.URLQueryEscaper(err.Error()), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/?flash=Booking+started", http.StatusFound)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(templatesFS, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		s.logger().Error("render", zap.Error(err))
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
