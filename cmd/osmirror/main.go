// Command osmirror logs into an OpenSlides server, mirrors its data and
// prints every change to the mirror until interrupted.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/docopt/docopt-go"
	"go.uber.org/fx"

	"github.com/openslides/openslides.go/pkg/config"
	"github.com/openslides/openslides.go/pkg/models"
)

const version = "0.1.0"

const usage = `OpenSlides mirror.

Connects to the server in OPENSLIDES_URL, loads everything the user may see
and prints each change of the local mirror.

Usage:
    osmirror collections
    osmirror [--env=<file>...] [--password=<password>] [--collection=<name>...] <username>
    osmirror -h | --help
    osmirror --version

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --env=<file>               Read variables from a .env file.
    --password=<password>      Password, falls back to OPENSLIDES_PASSWORD.
    --collection=<name>        Only print changes of this collection.`

type args struct {
	envFiles    []string
	username    string
	password    string
	collections []models.Collection
	list        bool
}

func parseArgs(argv []string, lookupEnv func(string) (string, bool)) (*args, error) {
	opts, err := docopt.ParseArgs(usage, argv, version)
	if err != nil {
		return nil, err
	}

	a := &args{}
	if a.list, _ = opts.Bool("collections"); a.list {
		return a, nil
	}

	a.username, _ = opts.String("<username>")
	a.password, _ = opts.String("--password")
	if a.password == "" {
		a.password, _ = lookupEnv("OPENSLIDES_PASSWORD")
	}

	a.envFiles, _ = opts["--env"].([]string)

	if names, ok := opts["--collection"].([]string); ok {
		for _, n := range names {
			c := models.Collection(n)
			if !models.IsRegistered(c) {
				return nil, fmt.Errorf("unknown collection %q, see osmirror collections", n)
			}
			a.collections = append(a.collections, c)
		}
	}

	return a, nil
}

func main() {
	a, err := parseArgs(os.Args[1:], os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if a.list {
		var names []string
		for _, c := range models.Kinds() {
			names = append(names, string(c))
		}
		fmt.Println(strings.Join(names, "\n"))
		return
	}

	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fx.New(options(cfg, a, os.Stdout)).Run()
}
