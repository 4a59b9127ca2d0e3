// speechcheck exercises the speech backend from the command line: feed it
// an audio file for transcription, or text for synthesis.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/medilink-lk/medibridge/backend/internal/config"
	"github.com/medilink-lk/medibridge/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if !cfg.Speech.Enabled() {
		log.Fatal("SPEECH_BASE_URL is not configured")
	}

	mode := flag.String("mode", "", "check mode: asr or tts")
	audioPath := flag.String("audio", "", "input audio file for asr")
	text := flag.String("text", "", "input text for tts")
	outputPath := flag.String("out", "speech.mp3", "output audio file for tts")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")
	flag.Parse()

	client := speech.NewClient(cfg.Speech)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, client, *audioPath)
	case "tts":
		runTTS(ctx, client, *text, *outputPath)
	default:
		flag.Usage()
		log.Fatal("specify -mode=asr or -mode=tts")
	}
}

func runASR(ctx context.Context, client *speech.Client, audioPath string) {
	if audioPath == "" {
		log.Fatal("-audio is required in asr mode")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("failed to read audio file: %v", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
	start := time.Now()
	transcript, err := client.Transcribe(ctx, audio, format)
	if err != nil {
		log.Fatalf("transcription failed: %v", err)
	}

	log.Printf("transcription finished in %s", time.Since(start).Round(time.Millisecond))
	log.Printf("transcript: %s", transcript)
}

func runTTS(ctx context.Context, client *speech.Client, text, outputPath string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("-text is required in tts mode")
	}

	start := time.Now()
	audio, err := client.Synthesize(ctx, text)
	if err != nil {
		log.Fatalf("synthesis failed: %v", err)
	}

	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		log.Fatalf("failed to write output file: %v", err)
	}
	log.Printf("synthesis finished in %s, %d bytes written to %s",
		time.Since(start).Round(time.Millisecond), len(audio), outputPath)
}
