package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"adstory/internal/infra"
	"adstory/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var (
		keyFlag    string
		deviceFlag string
		clearFlag  bool
	)
	flag.StringVar(&keyFlag, "key", "", "Gemini API key (falls back to GEMINI_API_KEY)")
	flag.StringVar(&deviceFlag, "device", "", "store the key for this device instead of as the deployment default")
	flag.BoolVar(&clearFlag, "clear", false, "remove the key of -device")
	flag.Parse()

	device := strings.TrimSpace(deviceFlag)
	if clearFlag && device == "" {
		fmt.Fprintln(os.Stderr, "-clear requires -device")
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if key == "" && !clearFlag {
		fmt.Fprintln(os.Stderr, "GEMINI API key is required via -key or environment")
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "").With().Str("cmd", "geminikey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
	if err := store.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare schema: %v\n", err)
		os.Exit(1)
	}

	switch {
	case clearFlag:
		err = store.ClearDeviceKey(ctx, device)
	case device != "":
		err = store.SetDeviceKey(ctx, device, key)
	default:
		err = store.SetDefaultKey(ctx, key)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist gemini api key: %v\n", err)
		os.Exit(1)
	}

	switch {
	case clearFlag:
		fmt.Printf("GEMINI API key cleared for device %s\n", device)
	case device != "":
		fmt.Printf("GEMINI API key stored for device %s\n", device)
	default:
		fmt.Println("GEMINI API key stored as deployment default")
	}
}
