package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"clinic-scheduling-api/internal/app"
)

func main() {
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}
