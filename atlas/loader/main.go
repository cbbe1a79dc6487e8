package main

import (
	"fmt"
	"io"
	"os"

	_ "ariga.io/atlas-go-sdk/recordriver" // import used by the CLI tool
	"ariga.io/atlas-provider-gorm/gormschema"

	"macrocopilot/src/database"
)

// Prints the DDL of the run and metric tables for `atlas migrate diff`.
func main() {
	statements, err := gormschema.New("postgres").Load(database.DbTables...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load GORM schema: %v\n", err)
		os.Exit(1)
	}

	io.WriteString(os.Stdout, statements) //nolint:errcheck
}
