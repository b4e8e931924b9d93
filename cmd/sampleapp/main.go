// Command sampleapp runs the sample web API that the contract tests and
// end-to-end examples are written against.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/qualitykit/api-contract-tests/framework"
	"github.com/qualitykit/api-contract-tests/sampleapp"
)

func main() {
	config, err := sampleapp.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var logger framework.Logger = log.New(os.Stdout, "[sampleapp] ", log.LstdFlags)
	app, err := sampleapp.New(config, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", config.Port)
	fmt.Printf("Sample app listening on %s\n", addr)
	if err := http.ListenAndServe(addr, app.Handler()); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %s\n", err)
		os.Exit(1)
	}
}
