package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/journalkit/mnemo/internal/cli"
)

func main() {
	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
