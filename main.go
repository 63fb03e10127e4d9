package main

import (
	"modpack-launcher/cmd"
	"modpack-launcher/logger"

	_ "go.uber.org/automaxprocs"
)

func main() {
	logger.InitLogger() // Initialize the logger first
	defer logger.Sync() // Ensure logs are flushed on exit
	cmd.Execute()
}
