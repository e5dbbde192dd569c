package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/term"

	"github.com/divVerent/midiseq/internal/file"
	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/player"
	"github.com/divVerent/midiseq/internal/version"
)

var (
	c      = flag.String("c", "midiseq.yml", "config file name (YAML)")
	fsPath = flag.String("fs", "", "directory, zip or zip.age archive holding the songs; default is the current directory")
	port   = flag.String("port", "", "regular expression to match the preferred output port")
	i      = flag.String("i", "", "when set, just play this file then exit")
	prompt = flag.Bool("prompt", false, "wait for a key press before each song")
)

var (
	playRE  = regexp.MustCompile(`^play (\S+)(?: at (\d+))?$`)
	tempoRE = regexp.MustCompile(`^tempo ([\d.]+)$`)
	quitRE  = regexp.MustCompile(`^q(?:u(?:it?)?)?$`)
)

func processCommand(b *player.Backend, fsys fs.FS, cmd []byte) error {
	if sub := playRE.FindSubmatch(cmd); sub != nil {
		filename := string(sub[1])
		f, err := fsys.Open(filename)
		if err == nil {
			f.Close()
		} else {
			altName := filename + ".yml"
			f, err := fsys.Open(altName)
			if err == nil {
				f.Close()
				filename = altName
			}
		}
		var beat int64
		if len(sub[2]) != 0 {
			_, err := fmt.Sscanf(string(sub[2]), "%d", &beat)
			if err != nil {
				return errors.New("failed to parse command: start is not a beat number")
			}
		}
		b.Commands <- player.Command{
			PlayOne: filename,
			Start:   midi.Clock(beat * midi.PPQN),
		}
		return nil
	}
	if sub := tempoRE.FindSubmatch(cmd); sub != nil {
		num := 0.0
		_, err := fmt.Sscanf(string(sub[1]), "%f", &num)
		if err != nil {
			return errors.New("failed to parse command: does not end with a number")
		}
		if num <= 0 {
			return errors.New("tempo must be positive")
		}
		b.Commands <- player.Command{
			Tempo: num,
		}
		return nil
	}
	if quitRE.Match(cmd) {
		b.Commands <- player.Command{
			Quit: true,
		}
		return nil
	}
	return errors.New("unknown command")
}

func textModeUI(b *player.Backend, fsys fs.FS) error {
	defer close(b.Commands) // This will invariably cause failure when reading.

	stdinFD := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(stdinFD)
	if err != nil {
		return fmt.Errorf("cannot make terminal raw: %v", err)
	}
	defer term.Restore(stdinFD, oldState)

	stdin := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				log.Printf("Error reading stdin: %v.", err)
				close(stdin)
				return
			}
			if n == 0 {
				continue
			}
			stdin <- buf[0]
		}
	}()

	var ui player.UIState
	var ok bool
	inputMode := false
	var inputCommand []byte
	var commandErr error

	for {
		var bar string
		if ui.Playing {
			bar = " >>  "
			if ui.PlaybackLen > 0 {
				fReal := ui.ActualPlaybackFraction()
				for i := 0; i <= 73; i++ {
					f := float64(i) / 73
					if fReal >= f {
						bar += "#"
					} else {
						bar += "="
					}
				}
			}
		} else if ui.PlayOne != "" {
			bar = " ||  =========================================================================="
		} else {
			bar = "[  ] --------------------------------------------------------------------------"
		}
		ifLine := func(b bool, s string) string {
			if !b {
				return ""
			}
			return s
		}
		lines := []string{
			fmt.Sprintf("\033[m\033[2J\033[H\033[1;34mmidiseq %v - text mode player\033[m", version.Version()),
			"",
			ifLine(ui.PlayOne != "", fmt.Sprintf("\033[1mNow Playing:\033[m %v", ui.PlayOne)),
			ifLine(ui.Title != "", fmt.Sprintf("\033[1mTitle:\033[m %v", ui.Title)),
			ifLine(ui.CurrentMessage != "", fmt.Sprintf("\033[1mStatus:\033[m %v", ui.CurrentMessage)),
			"",
			bar,
			ifLine(ui.Playing, fmt.Sprintf("     %v", ui.PlaybackClock)),
			"",
			ifLine(ui.Tempo != 0, fmt.Sprintf("\033[1mTempo:\033[m %.0f%%", 100*ui.Tempo)),
			"",
			ifLine(ui.Err != nil, fmt.Sprintf("\033[1;31mError:\033[0;31m %v\033[m", ui.Err)),
			ifLine(ui.Prompt != "", fmt.Sprintf("\033[1;33mPrompt: %v\033[m", ui.Prompt)),
			"",
			ifLine(commandErr != nil, fmt.Sprintf("\033[1;31mCommand Error:\033[0;31m %v\033[m", commandErr)),
			ifLine(inputMode, fmt.Sprintf("\033[1m:\033[m%s", inputCommand)),
		}
		os.Stderr.Write([]byte(strings.Join(lines, "\r\n")))

		select {
		case ui, ok = <-b.UIStates:
			if !ok {
				// UI channel was closed.
				return nil
			}
			// Rest handled above.
		case ch, ok := <-stdin:
			if !ok {
				return nil
			}
			if inputMode {
				switch ch {
				case 0x08, 0x7F:
					if len(inputCommand) > 0 {
						inputCommand = inputCommand[:len(inputCommand)-1]
					}
				case 0x0A, 0x0D:
					if len(inputCommand) > 0 {
						err := processCommand(b, fsys, inputCommand)
						if err != nil {
							commandErr = fmt.Errorf("could not parse command %q: %v", inputCommand, err)
						}
					}
					inputCommand = inputCommand[:0]
					inputMode = false
				case 0x03:
					// Ctrl-C. Quit right away.
					b.Commands <- player.Command{
						Quit: true,
					}
				case 0x1B:
					inputMode = false
				default:
					if ch == ':' && len(inputCommand) == 0 {
						continue
					}
					inputCommand = append(inputCommand, ch)
				}
			} else {
				switch ch {
				case '+', '=', '.':
					// More tempo.
					t := min(ui.Tempo+0.01, player.MaxTempo)
					b.Commands <- player.Command{
						Tempo: t,
					}
				case '-', '_', ',':
					// Less tempo.
					t := max(ui.Tempo-0.01, player.MinTempo)
					b.Commands <- player.Command{
						Tempo: t,
					}
				case 0x03:
					// Ctrl-C. Quit right away.
					b.Commands <- player.Command{
						Quit: true,
					}
				case 0x08, 0x7F:
					b.Commands <- player.Command{
						Exit: true,
					}
					commandErr = nil
				case 0x1B:
					commandErr = nil
				case ':':
					// Input mode during playback.
					commandErr = nil
					inputMode = true
				default:
					// "Any key".
					if ui.Prompt != "" {
						b.Commands <- player.Command{
							Answer: true,
						}
					}
				}
			}
		case <-time.After(50 * time.Millisecond):
			// At least 20 fps update.
		}
	}
}

func Main() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %v", err)
	}
	fsys := os.DirFS(cwd)

	config, err := file.ReadConfig(fsys, *c)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if *fsPath != "" {
		fsys, err = file.OpenFS(*fsPath, config.Password)
		if err != nil {
			return fmt.Errorf("failed to open %v: %w", *fsPath, err)
		}
	}

	pattern := *port
	if pattern == "" {
		pattern = config.Port
	}
	outPort, err := player.FindBestPort(pattern, config.PreferredPort)
	if err != nil {
		return fmt.Errorf("could not find MIDI port: %w", err)
	}
	log.Printf("Picked output port: %v.", outPort)

	if config.PreferredPort != outPort.String() {
		config.PreferredPort = outPort.String()
		err := file.WriteConfig(*c, config)
		if err != nil {
			log.Printf("Could not remember output port: %v.", err)
		}
	}

	b := player.NewBackend(&player.Options{
		FSys:     fsys,
		Config:   config,
		OutPort:  outPort,
		PlayOnly: *i,
		Prompt:   *prompt,
	})

	var loopErr error
	go func() {
		loopErr = b.Loop()
		b.Close()
	}()

	err = textModeUI(b, fsys)
	if err != nil {
		return err
	}
	return loopErr
}

func main() {
	flag.Parse()
	err := Main()
	if errors.Is(err, player.SigIntError) {
		os.Exit(127)
	}
	if err != nil && !errors.Is(err, player.QuitError) {
		log.Printf("Exiting due to: %v.", err)
		os.Exit(1)
	}
}
