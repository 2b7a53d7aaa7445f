package main

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zombor/expense-intake/internal/household"
	"github.com/zombor/expense-intake/internal/intake"
	"github.com/zombor/expense-intake/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("expense-intake")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "expense-intake.db", "Household roster database path")
		membersFile    = fs.StringLong("members-file", "", "YAML file of household members to load at startup (optional)")
		recognizerType = fs.StringLong("recognizer", "gemini", "Text recognizer: 'gemini' or 'ollama'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, qwen2-vl)")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFile        = fs.StringLong("log-file", "", "Write logs to this file with rotation instead of stderr")
		logMaxSize     = fs.IntLong("log-max-size", 100, "Maximum log file size in megabytes before rotation")
		logMaxBackups  = fs.IntLong("log-max-backups", 3, "Number of rotated log files to keep")
		logMaxAge      = fs.IntLong("log-max-age", 28, "Days to keep rotated log files")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSE_INTAKE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	out, closeLog := logOutput(logFileConfig{
		path:       *logFile,
		maxSize:    *logMaxSize,
		maxBackups: *logMaxBackups,
		maxAge:     *logMaxAge,
	})
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	err := run(logger, config{
		port:           *port,
		dbPath:         *dbPath,
		membersFile:    *membersFile,
		recognizerType: *recognizerType,
		geminiKey:      *geminiKey,
		geminiModel:    *geminiModel,
		ollamaURL:      *ollamaURL,
		ollamaModel:    *ollamaModel,
		auth:           intake.BasicAuth{Username: *authUser, Password: *authPass},
	})
	if err != nil {
		slog.Error("Exiting", "error", err)
	}
	// os.Exit skips deferred calls
	if cerr := closeLog(); cerr != nil {
		fmt.Fprintf(os.Stderr, "error: closing log file: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

type logFileConfig struct {
	path       string
	maxSize    int
	maxBackups int
	maxAge     int
}

// logOutput returns the log destination and a func that closes it. Logs go to
// stderr unless a file path is configured.
func logOutput(cfg logFileConfig) (io.Writer, func() error) {
	if cfg.path == "" {
		return os.Stderr, func() error { return nil }
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.path,
		MaxSize:    cfg.maxSize,
		MaxBackups: cfg.maxBackups,
		MaxAge:     cfg.maxAge,
		Compress:   true,
	}
	return rotator, rotator.Close
}

type config struct {
	port           int
	dbPath         string
	membersFile    string
	recognizerType string
	geminiKey      string
	geminiModel    string
	ollamaURL      string
	ollamaModel    string
	auth           intake.BasicAuth
}

func run(logger *slog.Logger, cfg config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Initializing roster...", "path", cfg.dbPath)
	roster, err := household.NewBoltRoster(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("initializing roster: %w", err)
	}
	defer roster.Close()

	if cfg.membersFile != "" {
		households, err := household.LoadSeedFile(cfg.membersFile)
		if err != nil {
			return err
		}
		if err := household.Seed(roster, households); err != nil {
			return err
		}
		slog.Info("Loaded household members", "file", cfg.membersFile, "households", len(households))
	}

	recognizer, err := newRecognizer(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer recognizer.Close()

	service := intake.NewService(recognizer, roster, logger)
	server := intake.NewServer(service, cfg.auth, version)

	if cfg.auth.Username != "" || cfg.auth.Password != "" {
		slog.Info("Basic auth enabled", "user", cfg.auth.Username)
	}
	return server.Start(ctx, fmt.Sprintf(":%d", cfg.port))
}

func newRecognizer(ctx context.Context, logger *slog.Logger, cfg config) (scanning.Recognizer, error) {
	switch cfg.recognizerType {
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("gemini API key is required; set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini recognizer...", "model", cfg.geminiModel)
		gemini, err := scanning.NewGemini(ctx, apiKey, cfg.geminiModel, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini: %w", err)
		}
		return gemini, nil
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel, logger), nil
	}
	return nil, fmt.Errorf("invalid recognizer %q: expected gemini or ollama", cfg.recognizerType)
}
