package main

import (
	"fmt"
	"os"
	"os/exec"

	"macrocopilot/src/config"
	"macrocopilot/src/database"
)

// Applies the atlas migrations to the database named in the copilot config
// ($CONFIG_PATH or config.local.yaml).
func main() {
	appConfig, err := config.Load("")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !appConfig.DatabaseConfig.Enabled {
		fmt.Println("postgres is not enabled in the config, nothing to migrate")
		return
	}

	uri := database.MakeConnectionString(&appConfig.DatabaseConfig)

	fmt.Printf("Executing migrations against db at %s:%d/%s\n",
		appConfig.DatabaseConfig.Host, appConfig.DatabaseConfig.Port, appConfig.DatabaseConfig.Database)

	cmd := exec.Command("atlas", "migrate", "apply",
		"--url", uri,
		"--dir", "file://atlas/migrations",
	)
	output, err := cmd.CombinedOutput()

	fmt.Print(string(output))

	if err != nil {
		fmt.Printf("failed to run Atlas migrations: %v\n", err)
		os.Exit(1)
	}
}
