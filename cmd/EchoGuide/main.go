package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/EchoGuide/internal/api"
	"github.com/BTreeMap/EchoGuide/internal/audio"
	"github.com/BTreeMap/EchoGuide/internal/camera"
	"github.com/BTreeMap/EchoGuide/internal/download"
	"github.com/BTreeMap/EchoGuide/internal/flow"
	"github.com/BTreeMap/EchoGuide/internal/genai"
	"github.com/BTreeMap/EchoGuide/internal/imaging"
	"github.com/BTreeMap/EchoGuide/internal/models"
	"github.com/BTreeMap/EchoGuide/internal/store"
	"github.com/BTreeMap/EchoGuide/internal/stt"
	"github.com/BTreeMap/EchoGuide/internal/tts"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for EchoGuide state data
	DefaultStateDir = "/var/lib/echoguide"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "echoguide.db"
	// ImageDirName is the directory captured frames are saved under
	ImageDirName = "captured_images"
	// ImageFileName is the fixed name the current frame is saved as
	ImageFileName = "last_capture.jpg"
	// ModelsDirName is the directory speech models are extracted under
	ModelsDirName = "models"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	if err := run(flags); err != nil {
		slog.Error("EchoGuide failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("EchoGuide exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir         *string
	dbDSN            *string
	openaiKey        *string
	apiAddr          *string
	cameraDevice     *int
	questionDuration *time.Duration
	followUpDuration *time.Duration
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    os.Getenv("ECHOGUIDE_STATE_DIR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     os.Getenv("API_ADDR"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ECHOGUIDE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Without a database URL, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"ECHOGUIDE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:         flag.String("state-dir", config.StateDir, "state directory for EchoGuide data (overrides $ECHOGUIDE_STATE_DIR)"),
		dbDSN:            flag.String("db-dsn", config.DatabaseURL, "database DSN for the state store (overrides $DATABASE_URL)"),
		openaiKey:        flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:          flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		cameraDevice:     flag.Int("camera-device", 0, "capture device index"),
		questionDuration: flag.Duration("question-duration", flow.DefaultQuestionDuration, "recording window for the user's question"),
		followUpDuration: flag.Duration("follow-up-duration", flow.DefaultFollowUpDuration, "recording window for follow-up answers"),
	}

	flag.Parse()

	// Follow the state directory when the DSN was only defaulted from it
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"cameraDevice", *flags.cameraDevice,
		"questionDuration", *flags.questionDuration,
		"followUpDuration", *flags.followUpDuration)

	return flags
}

// ensureDirectoriesExist creates the directories file-based storage needs
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		dbDir := filepath.Dir(*flags.dbDSN)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return err
		}
	}
	for _, dir := range []string{imageDir(flags), modelsDir(flags)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func imageDir(flags Flags) string {
	return filepath.Join(*flags.stateDir, ImageDirName)
}

func modelsDir(flags Flags) string {
	return filepath.Join(*flags.stateDir, ModelsDirName)
}

// buildStore selects the persistence backend by DSN type
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildSpeaker assembles the TTS engine set. The Google engine needs cloud
// credentials; without them EchoGuide still runs with the offline engine.
func buildSpeaker(ctx context.Context, st store.Store) (*tts.Factory, *tts.GoogleEngine) {
	engines := map[string]tts.Engine{
		models.TTSEngineEspeak: tts.NewEspeakEngine(),
	}
	google, err := tts.NewGoogleEngine(ctx, tts.NewPlayer())
	if err != nil {
		slog.Warn("Google Text-to-Speech unavailable, offline engine only", "error", err)
	} else {
		engines[models.TTSEngineGoogle] = google
	}
	return tts.NewFactory(st, engines), google
}

func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *flags.openaiKey != "" {
		os.Setenv("OPENAI_API_KEY", *flags.openaiKey)
	}

	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	recorder := audio.NewRecorder()
	if err := recorder.Init(); err != nil {
		return err
	}
	defer recorder.Terminate()

	cam := camera.NewHandler(*flags.cameraDevice)
	defer cam.Stop()

	transcriber := stt.NewVoskTranscriber(st, modelsDir(flags))
	defer transcriber.Close()

	speaker, google := buildSpeaker(ctx, st)
	if google != nil {
		defer google.Close()
	}

	vision, err := genai.NewClient()
	if err != nil {
		return err
	}

	images := imaging.NewRepo(imageDir(flags), ImageFileName)
	downloader := download.NewDownloader(modelsDir(flags))

	controller := flow.NewController(cam, speaker, recorder, transcriber, vision, images, st,
		flow.WithQuestionDuration(*flags.questionDuration),
		flow.WithFollowUpDuration(*flags.followUpDuration))

	apiOpts := []api.Option{api.WithImageDir(imageDir(flags))}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	server := api.NewServer(controller, st, downloader, cam, apiOpts...)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	slog.Info("EchoGuide running", "state_dir", *flags.stateDir)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}
