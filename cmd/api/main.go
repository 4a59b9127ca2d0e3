package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medilink-lk/medibridge/backend/internal/audio"
	"github.com/medilink-lk/medibridge/backend/internal/config"
	"github.com/medilink-lk/medibridge/backend/internal/conversation"
	"github.com/medilink-lk/medibridge/backend/internal/handler"
	speechhandler "github.com/medilink-lk/medibridge/backend/internal/handler/speech"
	"github.com/medilink-lk/medibridge/backend/internal/service/generate"
	"github.com/medilink-lk/medibridge/backend/internal/service/speech"
	"github.com/medilink-lk/medibridge/backend/internal/service/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	deps := conversation.Deps{}

	if cfg.Gemini.Enabled() {
		model, err := generate.NewGeminiClient(cfg.Gemini)
		if err != nil {
			log.Fatalf("failed to initialize generation model: %v", err)
		}
		deps.Generator = generate.NewService(model, cfg.Gemini.Timeout)
		log.Println("response generation service initialized")
	} else {
		log.Println("GEMINI_API_KEY not set, patient options will use fixed fallbacks")
		deps.Generator = generate.NewService(nil, cfg.Gemini.Timeout)
	}

	var speechClient *speech.Client
	if cfg.Speech.Enabled() {
		speechClient = speech.NewClient(cfg.Speech)
		deps.Transcriber = speechClient
		deps.Synthesizer = speechClient
		log.Printf("speech backend configured at %s", cfg.Speech.BaseURL)
	} else {
		log.Println("SPEECH_BASE_URL not set, transcription and playback disabled")
	}

	termSvc := term.NewService(cfg.Translate, cfg.Lookup)
	if cfg.Translate.Enabled() {
		deps.Translator = termSvc
		deps.Images = termSvc
		log.Println("word lookup service initialized")
	} else {
		log.Println("TRANSLATE_API_KEY not set, word lookup disabled")
	}

	if cfg.Audio.Enabled {
		deps.Recorder = audio.NewFFmpegRecorder(cfg.Audio)
		deps.Player = audio.NewFFplayPlayer(cfg.Audio)
		log.Println("local audio devices enabled")
	}

	manager := conversation.NewManager(deps)
	defer manager.CloseAll()

	// Assign only when non-nil so the router never sees a typed nil
	// behind a non-nil interface.
	var speechForRouter speechhandler.SpeechClient
	if speechClient != nil {
		speechForRouter = speechClient
	}
	router := handler.NewRouter(manager, speechForRouter)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("MediBridge backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
