package main

import (
	"github.com/rs/zerolog"

	"github.com/BioHazard786/Warpcall/cmd"
	"github.com/BioHazard786/Warpcall/internal/logging"
)

func main() {
	// The terminal belongs to the call view, so only errors are logged by default.
	logging.Init(zerolog.ErrorLevel)
	cmd.Execute()
}
