// Package webapi provides a web form and json api for mail spam checks.
package webapi

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"
	"golang.org/x/crypto/bcrypt"

	"github.com/umputun/mail-spam/app/storage"
	"github.com/umputun/mail-spam/lib/mailmsg"
	"github.com/umputun/mail-spam/lib/spamcheck"
)

//go:generate moq --out mocks/detector.go --pkg mocks --with-resets --skip-ensure . Detector
//go:generate moq --out mocks/history.go --pkg mocks --with-resets --skip-ensure . History
//go:generate moq --out mocks/models.go --pkg mocks --with-resets --skip-ensure . Models

//go:embed assets/*
var templateFS embed.FS

// languages supported by the web form, the first one is default
var languages = []string{"en", "tr"}

const (
	langCookie      = "lang"
	authUser        = "mail-spam"
	maxHistoryLimit = 1000
)

// Server is a web API server.
type Server struct {
	Config
}

// Config defines server parameters
type Config struct {
	Version         string   // version to show in /ping
	ListenAddr      string   // listen address
	Detector        Detector // spam detector
	History         History  // optional persistent history of checks
	Models          Models   // loaded models registry
	AuthPasswd      string   // basic auth password for user "mail-spam", protects api only
	AuthHash        string   // bcrypt hash of basic auth password, takes precedence over AuthPasswd
	DefaultLanguage string   // language used when no language cookie set
	Dbg             bool     // debug mode, logs every request
}

// Detector is a spam detector interface.
type Detector interface {
	Predict(ctx context.Context, req spamcheck.Request) spamcheck.Result
	LastResults(n int) []spamcheck.Entry
	ResetCache()
}

// History is a persistent storage of checks.
type History interface {
	Write(ctx context.Context, entry storage.HistoryEntry) error
	Read(ctx context.Context, limit int) ([]storage.HistoryEntry, error)
	Stats(ctx context.Context) (storage.HistoryStats, error)
}

// Models is a registry of loaded models.
type Models interface {
	Keys() []string
	Invalidate()
	Preload(ctx context.Context) error
}

// NewServer creates a new web API server.
func NewServer(config Config) *Server {
	if config.DefaultLanguage == "" || !supportedLanguage(config.DefaultLanguage) {
		config.DefaultLanguage = languages[0]
	}
	return &Server{Config: config}
}

// Run starts server and accepts requests checking mails for spam.
func (s *Server) Run(ctx context.Context) error {
	lmt := tollbooth.NewLimiter(50, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})

	router := routegroup.New(http.NewServeMux())
	router.Use(rest.Recoverer(lgr.Default()), rest.Throttle(1000), rest.AppInfo("mail-spam", "umputun", s.Version),
		rest.Ping, tollbooth.HTTPMiddleware(lmt), rest.SizeLimit(1024*1024)) // 1M max request size
	if s.Dbg {
		router.Use(logger.New(logger.Log(lgr.Std), logger.Prefix("[DEBUG]")).Handler)
	}

	if s.AuthPasswd != "" || s.AuthHash != "" {
		log.Printf("[INFO] basic auth enabled for api")
	} else {
		log.Printf("[WARN] basic auth disabled, access to api is not protected")
	}

	srv := &http.Server{Addr: s.ListenAddr, Handler: s.routes(router), ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout: 10 * time.Second, WriteTimeout: 60 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown webapi server: %v", err)
		} else {
			log.Printf("[INFO] webapi server stopped")
		}
	}()

	log.Printf("[INFO] start webapi server on %s", s.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}

func (s *Server) routes(router *routegroup.Bundle) *routegroup.Bundle {
	// web form
	router.HandleFunc("GET /{$}", s.htmlIndexHandler)
	router.HandleFunc("/result", s.htmlResultHandler) // any method, non-POST redirects home
	router.HandleFunc("/set_language", s.setLanguageHandler) // any method, non-POST redirects back
	router.HandleFunc("/i18n/setlang/", s.setLanguageHandler)
	router.HandleFunc("GET /styles.css", s.stylesHandler)

	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(s.authMiddleware())
		api.HandleFunc("POST /check", s.checkHandler)        // check a mail for spam
		api.HandleFunc("POST /check/eml", s.checkEMLHandler) // check raw rfc 822 message
		api.HandleFunc("GET /history", s.historyHandler)     // recent checks and stats
		api.HandleFunc("GET /models", s.modelsHandler)       // loaded models
		api.HandleFunc("PUT /models", s.reloadModelsHandler) // drop and load models again
	})
	return router
}

// htmlIndexHandler handles GET / request, renders the check form.
func (s *Server) htmlIndexHandler(w http.ResponseWriter, r *http.Request) {
	tmplData := struct {
		Version   string
		Language  string
		Languages []string
	}{
		Version:   s.Version,
		Language:  s.language(r),
		Languages: languages,
	}
	s.renderPage(w, "index.html", tmplData)
}

// htmlResultHandler handles POST /result request with the submitted form. Other methods redirect to form.
func (s *Server) htmlResultHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "can't parse form", http.StatusBadRequest)
		return
	}

	req := spamcheck.Request{
		Title:    r.PostFormValue("mailTitle"),
		Content:  r.PostFormValue("mailContent"),
		URL:      r.PostFormValue("mailUrl"),
		Filter:   r.PostFormValue("spamFilter"),
		Language: s.language(r),
	}
	res := s.Detector.Predict(r.Context(), req)
	s.saveHistory(r.Context(), "web", req, res)

	tmplData := struct {
		Version    string
		Language   string
		Languages  []string
		Result     string
		UsedModels []string
		Checks     []spamcheck.Response
	}{
		Version:    s.Version,
		Language:   req.Language,
		Languages:  languages,
		Result:     res.Verdict,
		UsedModels: res.Models,
		Checks:     res.Checks,
	}
	s.renderPage(w, "result.html", tmplData)
}

// setLanguageHandler handles /set_language request. POST keeps LANGUAGE_CODE in a cookie, other methods
// change nothing. Both redirect back to the referring page of the same host or to home.
func (s *Server) setLanguageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, redirectTarget(r), http.StatusFound)
		return
	}
	lang := r.FormValue("LANGUAGE_CODE")
	if lang == "" {
		lang = r.FormValue("language") // field name of the standard set language form
	}
	if supportedLanguage(lang) {
		http.SetCookie(w, &http.Cookie{Name: langCookie, Value: lang, Path: "/", MaxAge: 365 * 24 * 3600,
			HttpOnly: true, SameSite: http.SameSiteLaxMode})
	} else {
		log.Printf("[DEBUG] unsupported language %q ignored", lang)
	}
	http.Redirect(w, r, redirectTarget(r), http.StatusFound)
}

// checkHandler handles POST /api/check request with json encoded spamcheck.Request.
func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	req := spamcheck.Request{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		log.Printf("[WARN] can't decode request: %v", err)
		return
	}
	if req.Filter == "" {
		req.Filter = string(spamcheck.FilterAll)
	}
	res := s.Detector.Predict(r.Context(), req)
	s.saveHistory(r.Context(), "api", req, res)
	rest.RenderJSON(w, res)
}

// checkEMLHandler handles POST /api/check/eml request. Body is a raw message,
// optional query params filter (default all) and lang.
func (s *Server) checkEMLHandler(w http.ResponseWriter, r *http.Request) {
	msg, err := mailmsg.Parse(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't parse message", "details": err.Error()})
		log.Printf("[WARN] can't parse message: %v", err)
		return
	}

	filter := spamcheck.FilterAll
	if f := r.URL.Query().Get("filter"); f != "" {
		var ok bool
		if filter, ok = spamcheck.ParseFilter(f); !ok {
			w.WriteHeader(http.StatusBadRequest)
			rest.RenderJSON(w, rest.JSON{"error": "unknown filter", "details": f})
			return
		}
	}

	req := msg.Request(filter, r.URL.Query().Get("lang"))
	res := s.Detector.Predict(r.Context(), req)
	s.saveHistory(r.Context(), "eml", req, res)
	rest.RenderJSON(w, rest.JSON{"subject": msg.Subject, "from": msg.From, "urls": msg.URLs, "result": res})
}

// historyHandler handles GET /api/history?limit=N request. Returns recent checks kept in memory
// and, if history storage is set, stored checks with stats.
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			rest.RenderJSON(w, rest.JSON{"error": "invalid limit", "details": v})
			return
		}
		limit = min(l, maxHistoryLimit)
	}

	resp := rest.JSON{"recent": s.Detector.LastResults(limit)}
	if s.History != nil {
		entries, err := s.History.Read(r.Context(), limit)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			rest.RenderJSON(w, rest.JSON{"error": "can't read history", "details": err.Error()})
			return
		}
		stats, err := s.History.Stats(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			rest.RenderJSON(w, rest.JSON{"error": "can't get history stats", "details": err.Error()})
			return
		}
		resp["entries"], resp["stats"] = entries, stats
	}
	rest.RenderJSON(w, resp)
}

// modelsHandler handles GET /api/models request, returns keys of loaded models.
func (s *Server) modelsHandler(w http.ResponseWriter, _ *http.Request) {
	rest.RenderJSON(w, rest.JSON{"loaded": s.Models.Keys()})
}

// reloadModelsHandler handles PUT /api/models request. It drops loaded models and cached verdicts
// and loads all models again.
func (s *Server) reloadModelsHandler(w http.ResponseWriter, r *http.Request) {
	s.Models.Invalidate()
	s.Detector.ResetCache()
	if err := s.Models.Preload(r.Context()); err != nil {
		log.Printf("[WARN] can't reload models: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		rest.RenderJSON(w, rest.JSON{"error": "can't reload models", "details": err.Error(), "loaded": s.Models.Keys()})
		return
	}
	rest.RenderJSON(w, rest.JSON{"reloaded": true, "loaded": s.Models.Keys()})
}

// stylesHandler handles GET /styles.css request. It returns styles.css file.
func (s *Server) stylesHandler(w http.ResponseWriter, _ *http.Request) {
	body, err := templateFS.ReadFile("assets/styles.css")
	if err != nil {
		log.Printf("[WARN] can't read styles.css: %v", err)
		http.Error(w, "Error reading styles.css", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	tmpl, err := template.New("").ParseFS(templateFS, "assets/"+name, "assets/navbar.html")
	if err != nil {
		log.Printf("[WARN] can't load template %s: %v", name, err)
		http.Error(w, "Error loading template", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[WARN] can't execute template %s: %v", name, err)
		http.Error(w, "Error executing template", http.StatusInternalServerError)
		return
	}
}

// saveHistory writes check to the history storage, if set. Failure is logged only.
func (s *Server) saveHistory(ctx context.Context, source string, req spamcheck.Request, res spamcheck.Result) {
	if s.History == nil {
		return
	}
	entry := storage.HistoryEntry{Source: source, Title: req.Title, Content: req.Content, URL: req.URL,
		Filter: req.Filter, Language: req.Language, Spam: res.Spam, Pipeline: res.Pipeline,
		Models: res.Models, Checks: res.Checks}
	if err := s.History.Write(ctx, entry); err != nil {
		log.Printf("[WARN] can't save check to history: %v", err)
	}
}

// language returns language from cookie or the default one
func (s *Server) language(r *http.Request) string {
	if c, err := r.Cookie(langCookie); err == nil && supportedLanguage(c.Value) {
		return c.Value
	}
	return s.DefaultLanguage
}

// authMiddleware checks basic auth of api user with bcrypt hash or plain password, no checks if both not set
func (s *Server) authMiddleware() func(next http.Handler) http.Handler {
	switch {
	case s.AuthHash != "":
		return rest.BasicAuth(func(user, passwd string) bool {
			return user == authUser && bcrypt.CompareHashAndPassword([]byte(s.AuthHash), []byte(passwd)) == nil
		})
	case s.AuthPasswd != "":
		return rest.BasicAuthWithUserPasswd(authUser, s.AuthPasswd)
	default:
		return func(next http.Handler) http.Handler { return next }
	}
}

func supportedLanguage(lang string) bool {
	for _, l := range languages {
		if l == lang {
			return true
		}
	}
	return false
}

// redirectTarget returns referer if it points to the same host, "/" otherwise
func redirectTarget(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

// GenerateRandomPassword generates a random password of a given length
func GenerateRandomPassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_+"

	var password strings.Builder
	charsetSize := big.NewInt(int64(len(charset)))

	for range length {
		randomNumber, err := rand.Int(rand.Reader, charsetSize)
		if err != nil {
			return "", err
		}
		password.WriteByte(charset[randomNumber.Int64()])
	}
	return password.String(), nil
}
