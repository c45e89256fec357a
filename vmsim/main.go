// Command vmsim simulates a paged virtual memory backed by a swap file.
package main

import (
	"github.com/joho/godotenv"
	"github.com/sarchlab/vmsim/vmsim/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cmd.Execute()

	atexit.Exit(0)
}
