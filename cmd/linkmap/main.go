// Package main provides the entry point for the linkmap CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/linkmap/cmd/linkmap/cmd"
	lmerrors "github.com/Aman-CERP/linkmap/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, lmerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
