package main

import (
	"fmt"
	"os"

	"github.com/dalemusser/libraryhub/internal/app/opscli"
)

func main() {
	if err := opscli.NewRootCmd(opscli.MongoConnector).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "libraryctl: %v\n", err)
		os.Exit(1)
	}
}
