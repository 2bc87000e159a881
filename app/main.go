package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/mail-spam/app/scanner"
	"github.com/umputun/mail-spam/app/secrets"
	"github.com/umputun/mail-spam/app/storage"
	"github.com/umputun/mail-spam/app/storage/engine"
	"github.com/umputun/mail-spam/app/webapi"
	"github.com/umputun/mail-spam/lib/mailspam"
	"github.com/umputun/mail-spam/lib/spamcheck"
)

type options struct {
	Listen string `long:"listen" env:"LISTEN" default:":8080" description:"listen address"`

	Models struct {
		Dir        string        `long:"dir" env:"DIR" default:"models" description:"models directory"`
		ServingURL string        `long:"serving-url" env:"SERVING_URL" description:"serving api for sequence models without local weights"`
		Timeout    time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"serving api timeout"`
		Retries    int           `long:"retries" env:"RETRIES" default:"3" description:"serving api attempts"`
		RetryDelay time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"500ms" description:"delay between serving api attempts"`
		Watch      bool          `long:"watch" env:"WATCH" description:"reload models on changes in models directory"`
		WatchDelay time.Duration `long:"watch-delay" env:"WATCH_DELAY" default:"2s" description:"delay before reload after the last change"`
	} `group:"models" namespace:"models" env-namespace:"MODELS"`

	Cache struct {
		TTL  time.Duration `long:"ttl" env:"TTL" default:"10m" description:"ttl of cached verdicts, 0 to disable"`
		Size int           `long:"size" env:"SIZE" default:"1000" description:"max number of cached verdicts"`
	} `group:"cache" namespace:"cache" env-namespace:"CACHE"`

	Lang struct {
		Default       string  `long:"default" env:"DEFAULT" default:"en" choice:"en" choice:"tr" description:"default language of web form"`
		MinConfidence float64 `long:"min-confidence" env:"MIN_CONFIDENCE" default:"0" description:"min confidence of statistical turkish detection, disabled if 0"`
	} `group:"lang" namespace:"lang" env-namespace:"LANG"`

	DB struct {
		URL        string `long:"url" env:"URL" default:"mail-spam.db" description:"database url, sqlite file or postgres://, history disabled if empty"`
		GID        string `long:"gid" env:"GID" default:"mail-spam" description:"instance id in shared database"`
		MaxHistory int    `long:"max-history" env:"MAX_HISTORY" default:"10000" description:"max number of stored checks"`
	} `group:"db" namespace:"db" env-namespace:"DB"`

	HistorySize int `long:"history-size" env:"HISTORY_SIZE" default:"100" description:"number of recent checks kept in memory"`

	Logger struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable spam rotated logs"`
		FileName   string `long:"file" env:"FILE"  default:"mail-spam.log" description:"location of spam log"`
		MaxSize    string `long:"max-size" env:"MAX_SIZE" default:"100M" description:"maximum size before it gets rotated"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"maximum number of old log files to retain"`
	} `group:"logger" namespace:"logger" env-namespace:"LOGGER"`

	IMAP struct {
		Addr     string        `long:"addr" env:"ADDR" description:"imap server host:port, scanner disabled if empty"`
		User     string        `long:"user" env:"USER" description:"imap user"`
		Password string        `long:"password" env:"PASSWORD" description:"imap password"`
		Insecure bool          `long:"insecure" env:"INSECURE" description:"plain connection without tls"`
		Folders  []string      `long:"folder" env:"FOLDER" env-delim:"," default:"INBOX" description:"folders to scan"`
		Last     int           `long:"last" env:"LAST" default:"50" description:"number of most recent messages to check"`
		Interval time.Duration `long:"interval" env:"INTERVAL" default:"5m" description:"interval between scans"`
		Timeout  time.Duration `long:"timeout" env:"TIMEOUT" default:"30s" description:"imap commands timeout"`
		Language string        `long:"lang" env:"LANG" default:"en" choice:"en" choice:"tr" description:"language of scanned mails"`
		MarkSpam bool          `long:"mark-spam" env:"MARK_SPAM" description:"set spam keyword on detected spam"`
		Keyword  string        `long:"keyword" env:"KEYWORD" default:"$Junk" description:"spam keyword"`
	} `group:"imap" namespace:"imap" env-namespace:"IMAP"`

	AuthPasswd string `long:"auth" env:"AUTH" description:"basic auth password for api, \"auto\" to generate"`
	AuthHash   string `long:"auth-hash" env:"AUTH_HASH" description:"bcrypt hash of basic auth password for api"`

	SecretKey string `long:"secret-key" env:"SECRET_KEY" description:"key to decrypt ENC: values of passwords and db url"`
	Encrypt   string `long:"encrypt" description:"encrypt the value with secret key, print it and exit"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "local"

func main() {
	fmt.Printf("mail-spam %s\n", revision)
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
			log.Printf("[ERROR] cli error: %v", err)
		}
		os.Exit(2)
	}

	setupLog(opts.Dbg, logSecrets(opts)...)

	if opts.Encrypt != "" {
		enc, err := encryptValue(opts)
		if err != nil {
			log.Printf("[ERROR] %v", err)
			os.Exit(1)
		}
		fmt.Println(enc)
		return
	}
	log.Printf("[DEBUG] options: %+v", opts)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		// catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[WARN] interrupt signal")
		cancel()
	}()

	if err := execute(ctx, opts); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, opts options) error {
	if err := decryptSecrets(&opts); err != nil {
		return err
	}
	setupLog(opts.Dbg, logSecrets(opts)...) // decrypted values masked too

	registry, err := mailspam.NewRegistry(mailspam.RegistryParams{
		Dir:        opts.Models.Dir,
		ServingURL: opts.Models.ServingURL,
		HTTPClient: &http.Client{Timeout: opts.Models.Timeout},
		Retries:    opts.Models.Retries,
		RetryDelay: opts.Models.RetryDelay,
	})
	if err != nil {
		return fmt.Errorf("can't make models registry, %w", err)
	}
	if err = registry.Preload(ctx); err != nil {
		log.Printf("[WARN] not all models preloaded, %v", err)
	}
	log.Printf("[INFO] models loaded: %v", registry.Keys())

	detector := makeDetector(opts, registry)

	if opts.Models.Watch {
		go func() {
			err := mailspam.WatchModels(ctx, opts.Models.Dir, opts.Models.WatchDelay, func() {
				log.Printf("[INFO] models changed, reload")
				registry.Invalidate()
				detector.ResetCache()
				if err := registry.Preload(ctx); err != nil {
					log.Printf("[WARN] not all models reloaded, %v", err)
				}
			})
			if err != nil {
				log.Printf("[WARN] models watcher failed, %v", err)
			}
		}()
	}

	spamLogWriter, err := makeSpamLogWriter(opts)
	if err != nil {
		return fmt.Errorf("can't make spam log writer, %w", err)
	}
	defer spamLogWriter.Close()
	checker := &spamLoggingDetector{Detector: detector, wr: spamLogWriter}

	srvCfg := webapi.Config{
		Version:         revision,
		ListenAddr:      opts.Listen,
		Detector:        checker,
		Models:          registry,
		AuthHash:        opts.AuthHash,
		DefaultLanguage: opts.Lang.Default,
		Dbg:             opts.Dbg,
	}
	scannerParams := scanner.Params{Detector: checker}

	if opts.DB.URL != "" {
		db, err := engine.New(ctx, opts.DB.URL, opts.DB.GID)
		if err != nil {
			return fmt.Errorf("can't make db engine, %w", err)
		}
		defer db.Close()
		history, err := storage.NewHistory(ctx, db, opts.DB.MaxHistory)
		if err != nil {
			return fmt.Errorf("can't make history storage, %w", err)
		}
		log.Printf("[INFO] history storage: %s, max %d", db.Type(), opts.DB.MaxHistory)
		srvCfg.History = history
		scannerParams.History = history
	}

	if srvCfg.AuthPasswd, err = authPassword(opts.AuthPasswd); err != nil {
		return err
	}

	if opts.IMAP.Addr != "" {
		scannerParams.Mailbox = &scanner.IMAP{Addr: opts.IMAP.Addr, User: opts.IMAP.User, Password: opts.IMAP.Password,
			Insecure: opts.IMAP.Insecure, Timeout: opts.IMAP.Timeout, Retries: 3, SpamKeyword: opts.IMAP.Keyword}
		scannerParams.Folders = opts.IMAP.Folders
		scannerParams.Last = opts.IMAP.Last
		scannerParams.Interval = opts.IMAP.Interval
		scannerParams.Language = opts.IMAP.Language
		scannerParams.MarkSpam = opts.IMAP.MarkSpam
		go func() {
			if err := scanner.New(scannerParams).Run(ctx); err != nil {
				log.Printf("[WARN] mailbox scanner failed, %v", err)
			}
		}()
	}

	srv := webapi.NewServer(srvCfg)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("web server failed, %w", err)
	}
	return nil
}

// makeDetector creates spam detector from options, with statistical turkish detection if enabled
func makeDetector(opts options, registry *mailspam.Registry) *mailspam.Detector {
	cfg := mailspam.Config{
		CacheTTL:    opts.Cache.TTL,
		CacheSize:   opts.Cache.Size,
		HistorySize: opts.HistorySize,
	}
	if opts.Lang.MinConfidence > 0 {
		cfg.LangDetector = mailspam.NewLinguaDetector(opts.Lang.MinConfidence)
		log.Printf("[DEBUG] statistical turkish detection, min confidence %.2f", opts.Lang.MinConfidence)
	}
	log.Printf("[DEBUG] detector config: %+v", cfg)
	return mailspam.NewDetector(cfg, registry)
}

// authPassword returns api password, "auto" generates a random one
func authPassword(passwd string) (string, error) {
	if passwd != "auto" {
		return passwd, nil
	}
	res, err := webapi.GenerateRandomPassword(20)
	if err != nil {
		return "", fmt.Errorf("can't generate api password, %w", err)
	}
	log.Printf("[WARN] generated basic auth password for user mail-spam: %q", res)
	return res, nil
}

// decryptSecrets replaces ENC: values of imap password, api password and db url with decrypted ones
func decryptSecrets(opts *options) error {
	values := []*string{&opts.IMAP.Password, &opts.AuthPasswd, &opts.DB.URL}
	encrypted := false
	for _, v := range values {
		if secrets.IsEncrypted(*v) {
			encrypted = true
			break
		}
	}
	if !encrypted {
		return nil
	}
	crypter, err := secrets.NewCrypter(opts.SecretKey, opts.DB.GID)
	if err != nil {
		return fmt.Errorf("can't make crypter for encrypted values, %w", err)
	}
	if err := crypter.DecryptAll(values...); err != nil {
		return fmt.Errorf("can't decrypt values, %w", err)
	}
	return nil
}

// logSecrets returns values masked in logs: passwords, secret key and password of db url
func logSecrets(opts options) []string {
	res := []string{opts.IMAP.Password, opts.AuthPasswd, opts.SecretKey}
	if u, err := url.Parse(opts.DB.URL); err == nil && u.User != nil {
		if passwd, ok := u.User.Password(); ok {
			res = append(res, passwd)
		}
	}
	return res
}

func encryptValue(opts options) (string, error) {
	crypter, err := secrets.NewCrypter(opts.SecretKey, opts.DB.GID)
	if err != nil {
		return "", fmt.Errorf("can't make crypter, %w", err)
	}
	res, err := crypter.Encrypt(opts.Encrypt)
	if err != nil {
		return "", fmt.Errorf("can't encrypt value, %w", err)
	}
	return res, nil
}

// spamLoggingDetector writes a json line for every detected spam
type spamLoggingDetector struct {
	*mailspam.Detector
	wr io.Writer
}

// Predict checks the mail with wrapped detector and logs spam
func (d *spamLoggingDetector) Predict(ctx context.Context, req spamcheck.Request) spamcheck.Result {
	res := d.Detector.Predict(ctx, req)
	if !res.Spam {
		return res
	}
	title := strings.TrimSpace(strings.ReplaceAll(req.Title, "\n", " "))
	log.Printf("[INFO] spam detected, title: %q, models: %v", title, res.Models)
	m := struct {
		TimeStamp string               `json:"ts"`
		Title     string               `json:"title"`
		URL       string               `json:"url,omitempty"`
		Filter    string               `json:"filter"`
		Pipeline  string               `json:"pipeline"`
		Models    []string             `json:"models"`
		Checks    []spamcheck.Response `json:"checks"`
	}{
		TimeStamp: time.Now().In(time.Local).Format(time.RFC3339),
		Title:     title,
		URL:       req.URL,
		Filter:    req.Filter,
		Pipeline:  res.Pipeline,
		Models:    res.Models,
		Checks:    res.Checks,
	}
	line, err := json.Marshal(&m)
	if err != nil {
		log.Printf("[WARN] can't marshal json, %v", err)
		return res
	}
	if _, err := d.wr.Write(append(line, '\n')); err != nil {
		log.Printf("[WARN] can't write to log, %v", err)
	}
	return res
}

// makeSpamLogWriter creates spam log writer to keep reports about spam messages
// it parses options and makes lumberjack logger with rotation
func makeSpamLogWriter(opts options) (accessLog io.WriteCloser, err error) {
	if !opts.Logger.Enabled {
		return nopWriteCloser{io.Discard}, nil
	}

	maxSize, perr := sizeParse(opts.Logger.MaxSize)
	if perr != nil {
		return nil, fmt.Errorf("can't parse logger MaxSize: %w", perr)
	}
	maxSize /= 1048576

	log.Printf("[INFO] logger enabled for %s, max size %dM", opts.Logger.FileName, maxSize)
	return &lumberjack.Logger{
		Filename:   opts.Logger.FileName,
		MaxSize:    int(maxSize), // in MB
		MaxBackups: opts.Logger.MaxBackups,
		Compress:   true,
		LocalTime:  true,
	}, nil
}

// sizeParse parses size with optional k, m, g or t suffix
func sizeParse(inp string) (uint64, error) {
	if inp == "" {
		return 0, errors.New("empty value")
	}
	for i, sfx := range []string{"k", "m", "g", "t"} {
		if strings.HasSuffix(strings.ToLower(inp), sfx) {
			val, err := strconv.Atoi(inp[:len(inp)-1])
			if err != nil {
				return 0, fmt.Errorf("can't parse %s: %w", inp, err)
			}
			return uint64(float64(val) * math.Pow(float64(1024), float64(i+1))), nil
		}
	}
	return strconv.ParseUint(inp, 10, 64)
}

type nopWriteCloser struct{ io.Writer }

func (n nopWriteCloser) Close() error { return nil }

func setupLog(dbg bool, secretValues ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	nonEmpty := make([]string, 0, len(secretValues))
	for _, s := range secretValues {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, lgr.Secret(nonEmpty...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
