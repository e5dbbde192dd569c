package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/divVerent/midiseq/internal/file"
	"github.com/divVerent/midiseq/internal/midifile"
	"github.com/divVerent/midiseq/internal/version"
)

var (
	i           = flag.String("i", "", "input MIDI file name")
	fsPath      = flag.String("fs", "", "directory, zip or zip.age archive to read the input from")
	password    = flag.String("password", "", "password of a zip.age archive")
	charset     = flag.String("charset", "", "charset of text meta events, one of: "+strings.Join(midifile.Charsets, " "))
	showVersion = flag.Bool("version", false, "print the version and exit")
)

func Main() error {
	if *showVersion {
		fmt.Println(version.Version())
		return nil
	}
	if *i == "" {
		return fmt.Errorf("no input file given, use -i")
	}

	name := *i
	dir := *fsPath
	if dir == "" {
		dir, name = filepath.Split(name)
		if dir == "" {
			dir = "."
		}
	}
	fsys, err := file.OpenFS(dir, *password)
	if err != nil {
		return fmt.Errorf("failed to open %v: %w", dir, err)
	}

	config := &file.Config{Charset: *charset}
	song, info, err := file.Process(fsys, config, &file.Options{InputFile: name})
	if err != nil {
		return err
	}
	return file.WriteSummary(os.Stdout, file.Summarize(song, &info))
}

func main() {
	flag.Parse()
	err := Main()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
