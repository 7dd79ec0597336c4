package main

import (
	"log"
	"os"

	"github.com/yamclicker/core/cmd/yams/commands"
)

// @title Yam Clicker API
// @version 1.0
// @description Game-state engine of the Yam Clicker incremental game

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
