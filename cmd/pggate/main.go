package main

import (
	"fmt"
	"io"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage(os.Stdout)
	case "doctor":
		if err := runDoctor(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		localHost := ""
		if len(os.Args) > 2 {
			localHost = os.Args[2]
		}
		if err := runServe(os.Args[1], localHost); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "pggate — read-only PostgreSQL MCP gateway")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  pggate <database-url> [local-host]   Serve MCP over stdio")
	fmt.Fprintln(w, "  pggate doctor [database-url]         Check configuration and connectivity")
	fmt.Fprintln(w, "  pggate --help                        Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The optional local-host argument rewrites the host advertised in")
	fmt.Fprintln(w, "resource URIs without changing the connection target.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  PGGATE_CONFIG_PATH   Optional JSON config file")
	fmt.Fprintln(w, "  PGGATE_*             Scalar config overrides (pool, timeouts, logging)")
}
