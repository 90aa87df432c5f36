// Command packstore-inspect opens a packstore backing file and prints
// information about it. It writes no records, though opening a path that
// does not exist creates an empty backing file there. It exists so a developer can eyeball a
// backing file from a shell; it is not a supported wrapper around the
// store.
package main

import (
	"fmt"
	"os"

	"github.com/calvinalkan/packstore/pkg/packstore"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:]))
}

func run(stdout, stderr *os.File, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(stderr, "usage: packstore-inspect <backing-file> <list|find|cat|stats> [arg]")
		return 2
	}

	path, subcommand, rest := args[0], args[1], args[2:]

	store, err := packstore.Open(packstore.Options{Path: path})
	if err != nil {
		fmt.Fprintf(stderr, "open %q: %v\n", path, err)
		return 1
	}
	defer store.Close()

	switch subcommand {
	case "list":
		return runList(stdout, stderr, store, rest)
	case "find":
		return runFind(stdout, stderr, store, rest)
	case "cat":
		return runCat(stdout, stderr, store, rest)
	case "stats":
		return runStats(stdout, stderr, store)
	default:
		fmt.Fprintf(stderr, "unknown subcommand %q\n", subcommand)
		return 2
	}
}

func runList(stdout, stderr *os.File, store *packstore.Store, args []string) int {
	var prefix string
	if len(args) > 0 {
		prefix = args[0]
	}

	paths, err := store.List(prefix)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}

	return 0
}

func runFind(stdout, stderr *os.File, store *packstore.Store, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "usage: packstore-inspect <backing-file> find <name>")
		return 2
	}

	paths, err := store.Find(args[0])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}

	return 0
}

func runCat(stdout, stderr *os.File, store *packstore.Store, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "usage: packstore-inspect <backing-file> cat <path>")
		return 2
	}

	value, err := store.Read(args[0])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if _, err := stdout.Write(value); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	return 0
}

func runStats(stdout, _ *os.File, store *packstore.Store) int {
	paths, err := store.List("")
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	fmt.Fprintf(stdout, "live records: %d\n", len(paths))

	return 0
}
