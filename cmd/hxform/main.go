// Command hxform renders, validates and compiles declarative form
// definitions.
//
//	hxform render signup.yaml
//	hxform validate signup.yaml -d login=ada -d password=secret
//	hxform generate signup.yaml -p forms -o ./forms
//	hxform serve signup.yaml --addr :8080
package main

import (
	"errors"
	"fmt"
	"os"
)

var version = "0.1.0"

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errFormInvalid) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
