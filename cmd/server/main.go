package main

import (
	approuters "Campus/internal/app_routers"
	"Campus/internal/configuration"
	"log"
	"os"
)

const defaultConfigPath = "config/config.dev.json"

func main() {
	path := os.Getenv("CAMPUS_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	container, err := configuration.BuildContainer(path)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	approuters.StartServer(container)
}
