// Package main provides the engine-report CLI. It runs the cleaning
// pipeline, clustering and the analytics workbook against the raw
// engine dataset without a running server.
package main

import (
	"os"
)

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
