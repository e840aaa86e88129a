package main

import (
	"os"

	"github.com/gradienthealth/studyselect/internal/exitcode"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitcode.UsageError)
	}
}
