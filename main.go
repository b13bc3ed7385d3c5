package main

import (
	"flag"
	"fmt"
	"os"

	"signage-service/app"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	if err := app.Run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "signage-service: %v\n", err)
		os.Exit(1)
	}
}
