package main

import (
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/flowforge/internal/cli"
)

func main() {
	// LOG_LEVEL and LOG_FORMAT may come from .env; real env vars win.
	_ = godotenv.Load()
	cli.Execute()
}
