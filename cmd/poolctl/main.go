/*
Package main is the entry point for poolctl.

Usage:

	poolctl [command]

Available Commands:

	serve       Run the HTTP API
	search      Rank profiles for a query
	reindex     Generate embeddings for profiles that lack one
	seed        Upsert profiles from a YAML file
	version     Show version information
*/
package main

import (
	"fmt"
	"os"

	"github.com/kailas-cloud/thepool/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
