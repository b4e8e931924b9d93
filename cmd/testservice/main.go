// Command testservice runs the reference consumer test service, which the
// contract-test harness connects to with its -url flag.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/qualitykit/api-contract-tests/testservice"
)

const defaultPort = 8112

func main() {
	var port int
	var quiet bool
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.IntVar(&port, "port", defaultPort, "port to listen on")
	fs.BoolVar(&quiet, "quiet", false, "disable request logging")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var logger testservice.Logger
	if !quiet {
		logger = log.New(os.Stdout, "[testservice] ", log.LstdFlags)
	}

	service := testservice.NewService(
		"qualitykit reference consumer (apiclient)",
		func() { os.Exit(0) },
		logger,
	)

	addr := fmt.Sprintf(":%d", port)
	fmt.Printf("Test service listening on %s\n", addr)
	if err := http.ListenAndServe(addr, service.Handler()); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %s\n", err)
		os.Exit(1)
	}
}
