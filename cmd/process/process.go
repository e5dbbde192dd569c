package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/divVerent/midiseq/internal/file"
)

var (
	c           = flag.String("c", "midiseq.yml", "config file name (YAML)")
	i           = flag.String("i", "", "input file name (YAML)")
	fsPath      = flag.String("fs", "", "directory, zip or zip.age archive holding the MIDI files; default is the current directory")
	addChecksum = flag.Bool("add_checksum", false, "automatically add checksum to the input YAML")
	o           = flag.String("o", "", "output file name; a .age suffix encrypts with the config password")
)

func Main() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %v", err)
	}
	fsys := os.DirFS(cwd)

	config, err := file.ReadConfig(fsys, *c)
	if err != nil {
		return fmt.Errorf("failed to read config: %v", err)
	}

	options, err := file.ReadOptions(fsys, *i)
	if err != nil {
		return fmt.Errorf("failed to read options: %v", err)
	}

	if *fsPath != "" {
		fsys, err = file.OpenFS(*fsPath, config.Password)
		if err != nil {
			return fmt.Errorf("failed to open %v: %v", *fsPath, err)
		}
	}

	wantChecksum := options.InputFileSHA256 == ""

	song, info, err := file.Process(fsys, config, options)
	if err != nil {
		return fmt.Errorf("failed to process: %v", err)
	}
	log.Printf("Read %v: format %d, %d tracks at %d PPQN.", options.InputFile, info.Format, song.Size(), info.PPQN)

	if *o == "" {
		*o = strings.TrimSuffix(*i, ".yml") + ".mid"
	}

	err = file.Save(*o, song, config)
	if err != nil {
		return fmt.Errorf("failed to write %v: %v", *o, err)
	}

	if wantChecksum && *addChecksum {
		err := file.WriteOptions(*i, options)
		if err != nil {
			return fmt.Errorf("failed to write %v: %v", *i, err)
		}
	}

	return nil
}

func main() {
	flag.Parse()
	err := Main()
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
