package player

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/divVerent/midiseq/internal/file"
	"github.com/divVerent/midiseq/internal/midi"
	"github.com/divVerent/midiseq/internal/seq"
)

type Command struct {
	// Exit exits all current playbacks and returns to waiting state.
	Exit bool

	// Quit quits the entire main loop.
	Quit bool

	// PlayOne plays the given file: song options (*.yml) or a MIDI file.
	PlayOne string

	// Start is where PlayOne begins.
	Start midi.Clock

	// Tempo sets the tempo to a new factor.
	Tempo float64

	// Answer continues the current playback (exits a Prompt state).
	Answer bool

	// Config contains a new configuration. Will be applied on next song.
	Config *file.Config

	// OutPort contains a new, not yet opened, MIDI port. Will be applied once silent.
	OutPort drivers.Out
}

// IsZero returns if the command is an empty message. If so, this likely indicates a closed channel.
func (c Command) IsZero() bool {
	return reflect.DeepEqual(c, Command{})
}

// IsMainLoopCommands returns if the command can only be handled by the main loop.
func (c Command) IsMainLoopCommand() bool {
	return c.Exit || c.Quit || c.PlayOne != "" || c.IsZero()
}

// UIState is the state of the user interface.
type UIState struct {
	// Err is set to show an error message. The backend is dead, but can be
	// restarted by sending a PlayOne message.
	Err error

	// PlayOne is the name of the currently playing file.
	PlayOne string

	// Tempo is the current tempo as a factor of normal.
	Tempo float64

	// Prompt is the text to prompt the user with.
	// To clear a prompt, send the Answer message.
	Prompt string

	// Title of the current song.
	Title string

	// CurrentMessage is a message for what is currently playing, such as
	// the last flag passed.
	CurrentMessage string

	// Playing is whether we are currently playing.
	Playing bool

	// PlaybackPosTime is the wall time PlaybackPos was last updated.
	PlaybackPosTime time.Time

	// PlaybackPos is the current playback position.
	PlaybackPos time.Duration

	// PlaybackClock is PlaybackPos in song time.
	PlaybackClock midi.Clock

	// PlaybackLen is the length of the current song.
	PlaybackLen time.Duration
}

func (ui UIState) ActualPlaybackPos() time.Duration {
	delta := time.Duration(float64(time.Since(ui.PlaybackPosTime)) * ui.Tempo)
	return ui.PlaybackPos + delta
}

func (ui UIState) ActualPlaybackFraction() float64 {
	return float64(ui.ActualPlaybackPos()) / float64(ui.PlaybackLen)
}

type Backend struct {
	// Commands can be used to send commands to the UI.
	Commands chan Command

	// UIStates receives updates to the UI state non-blockingly.
	UIStates chan UIState

	// fs is the file system.
	fsys fs.FS

	// The configuration data.
	config file.Config

	// outPort is the MIDI port to play to.
	outPort drivers.Out

	// nextOutPort is the outPort to change to. Will be applied on next
	// playback or when no note is playing.
	nextOutPort drivers.Out

	// The current UI state. Sent to the client on every update, nonblockingly.
	uiState UIState

	// The next command to be executed. Commands that cannot be processed
	// immediately are enqueued here and handled by the main loop. There can be
	// only one.
	nextCommand *Command

	// If set, running the main loop will just play this.
	playOnly string

	// Whether to wait for an answer before playing.
	prompt bool

	now   func() time.Time
	sleep func(time.Duration) error
}

type Options struct {
	// FSys is the virtual file system to use.
	FSys fs.FS

	// Config is the global configuration to use.
	Config *file.Config

	// OutPort is the MIDI output port to use. OK to change later.
	OutPort drivers.Out

	// PlayOnly is the single file to play.
	PlayOnly string

	// Prompt asks before starting each song.
	Prompt bool
}

// Limits of the tempo factor.
const (
	MinTempo = 0.5
	MaxTempo = 2.0
)

// ClampTempo limits a tempo factor to [MinTempo, MaxTempo].
func ClampTempo(t float64) float64 {
	if math.IsNaN(t) {
		return 1
	}
	return max(MinTempo, min(t, MaxTempo))
}

func NewBackend(options *Options) *Backend {
	b := &Backend{
		Commands:    make(chan Command, 10),
		UIStates:    make(chan UIState, 100),
		fsys:        options.FSys,
		config:      *options.Config,
		nextOutPort: options.OutPort,
		uiState: UIState{
			Tempo:          ClampTempo(file.WithDefault(options.Config.TempoFactor, 1.0)),
			CurrentMessage: "initializing player",
		},
		nextCommand: nil,
		playOnly:    options.PlayOnly,
		prompt:      options.Prompt,
		now:         time.Now,
	}
	b.sleep = b.sigSleep
	return b
}

func (b *Backend) sendUIState() {
	select {
	case b.UIStates <- b.uiState:
		return
	default:
		log.Printf("Tried to send an UI state, but nobody came.")
		return
	}
}

var SigIntError = errors.New("SIGINT caught")
var sigInt = make(chan os.Signal, 1)

func init() {
	signal.Notify(sigInt, os.Interrupt)
}

func (b *Backend) sigSleep(t time.Duration) error {
	done := time.After(t)
	for {
		select {
		case <-sigInt:
			return SigIntError
		case cmd := <-b.Commands:
			if err := b.handleCommandDuringSleep(cmd); err != nil {
				if !errors.Is(err, promptAnsweredError) {
					if b.nextCommand != nil {
						log.Panicf("Unreachable code: already have a next command!")
					}
					b.nextCommand = &cmd
				}
				return err
			}
			// Otherwise, the command has been handled, and the loop will run again.
		case <-done:
			return nil
		}
	}
}

var promptAnsweredError = errors.New("prompt answered")
var exitPlaybackError = errors.New("exiting playback")

func (b *Backend) handleCommandDuringSleep(cmd Command) error {
	if cmd.IsMainLoopCommand() {
		return exitPlaybackError
	}
	switch {
	case cmd.Tempo != 0:
		b.uiState.Tempo = ClampTempo(cmd.Tempo)
		b.sendUIState()
		return nil
	case cmd.Answer:
		if b.uiState.Prompt == "" {
			log.Printf("Spurious prompt answer: %+v.", cmd)
			return nil
		}
		return promptAnsweredError // Caught when waiting for prompt.
	case cmd.Config != nil:
		b.config = *cmd.Config
		return nil
	case cmd.OutPort != nil:
		b.nextOutPort = cmd.OutPort
		return nil
	default:
		return fmt.Errorf("unrecognized command: %+v", cmd)
	}
}

func (b *Backend) updateOutPort() error {
	if b.nextOutPort == nil {
		return nil
	}
	port := b.nextOutPort
	b.nextOutPort = nil
	err := port.Open()
	if err != nil {
		return err
	}
	if b.outPort != nil {
		b.outPort.Close()
	}
	b.outPort = port
	return nil
}

func (b *Backend) send(cmd midi.Command) error {
	msg := cmd.Message()
	if len(msg) == 0 {
		return nil
	}
	if b.outPort == nil {
		return fmt.Errorf("no output port")
	}
	return b.outPort.Send(msg.Bytes())
}

// allNotesOff silences every channel.
func (b *Backend) allNotesOff() error {
	if b.outPort == nil {
		return nil
	}
	for ch := uint8(0); ch < 16; ch++ {
		err := b.send(midi.NewCommand(midi.ControlChange, ch, 0, midi.AllNotesOff, 0))
		if err != nil {
			return err
		}
	}
	return nil
}

// playSong plays song from start on the current thread. Note-offs still
// pending when playback stops, for whatever reason, are sent right away.
func (b *Backend) playSong(song *seq.Song, start midi.Clock) (err error) {
	err = b.updateOutPort()
	if err != nil {
		return err
	}

	song.Lock()
	it := song.Iterator(start)
	tempo := song.TempoTrack()
	flags := song.FlagTrack()
	bpm := tempo.TempoAt(start)
	fi := flags.Index(start)
	b.uiState.Playing = true
	b.uiState.Title = song.Title()
	b.uiState.PlaybackLen = tempo.Duration(song.LastClock())
	b.uiState.PlaybackPos = tempo.Duration(start)
	b.uiState.PlaybackClock = start
	b.uiState.PlaybackPosTime = b.now()
	song.Unlock()
	b.sendUIState()

	var offs midi.OffQueue
	defer func() {
		song.Lock()
		it.Close()
		song.Unlock()
		flushErr := offs.Flush(func(_ midi.Clock, cmd midi.Command) error {
			return b.send(cmd)
		})
		if flushErr != nil && err == nil {
			err = flushErr
		}
		b.uiState.Playing = false
		b.uiState.Title = ""
		b.uiState.PlaybackLen = 0
		b.uiState.PlaybackPos = 0
		b.uiState.PlaybackClock = 0
		b.uiState.PlaybackPosTime = time.Time{}
		b.sendUIState()
	}()

	pos := start
	prevNow := b.now()

	// advance waits until song time c.
	advance := func(c midi.Clock) error {
		if c > pos {
			d := seq.TicksDuration(c-pos, bpm)
			prevNow = prevNow.Add(time.Duration(float64(d) / b.uiState.Tempo))
			b.uiState.PlaybackPos += d
			pos = c
		}
		waitTime := prevNow.Sub(b.now())
		if waitTime > 0 {
			return b.sleep(waitTime)
		}
		return nil
	}
	// playOff sends a note-off on time. It is sent even if waiting failed.
	playOff := func(at midi.Clock, cmd midi.Command) error {
		waitErr := advance(at)
		err := b.send(cmd)
		if waitErr != nil {
			return waitErr
		}
		return err
	}

	for {
		song.Lock()
		more := it.More()
		var e midi.Event
		if more {
			e = it.Current()
		}
		song.Unlock()
		if !more {
			break
		}

		err := offs.PopUntil(e.Time, playOff)
		if err != nil {
			return err
		}
		err = advance(e.Time)
		if err != nil {
			return err
		}

		for ; fi < flags.Size() && flags.At(fi).Time <= e.Time; fi++ {
			b.uiState.CurrentMessage = flags.At(fi).Value.Title
		}

		switch {
		case e.Data.IsMoveTo():
			err := offs.Flush(func(_ midi.Clock, cmd midi.Command) error {
				return b.send(cmd)
			})
			if err != nil {
				return err
			}
			song.Lock()
			it.MoveTo(e.OffTime)
			bpm = tempo.TempoAt(e.OffTime)
			fi = flags.Index(e.OffTime)
			b.uiState.PlaybackPos = tempo.Duration(e.OffTime)
			song.Unlock()
			pos = e.OffTime
			continue
		case e.Data.Status.IsChannel():
			// Allow port changes if no note is playing right now.
			if offs.Len() == 0 {
				err := b.updateOutPort()
				if err != nil {
					return err
				}
			}
			err := b.send(e.Data)
			if err != nil {
				return err
			}
			offs.PushNote(e)
		default:
			if v, ok := e.Data.Tempo(); ok {
				bpm = v
			}
		}

		b.uiState.PlaybackClock = e.Time
		b.uiState.PlaybackPosTime = prevNow
		b.sendUIState()

		song.Lock()
		it.Next()
		song.Unlock()
	}

	return offs.Flush(playOff)
}

// load reads the given song options or MIDI file and arranges the song.
func (b *Backend) load(name string) (*seq.Song, error) {
	options := &file.Options{InputFile: name}
	if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
		var err error
		options, err = file.ReadOptions(b.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %v: %w", name, err)
		}
	}
	song, _, err := file.Process(b.fsys, &b.config, options)
	if err != nil {
		return nil, fmt.Errorf("failed to process %v: %w", name, err)
	}
	return song, nil
}

// prompt asks the user something.
func (b *Backend) askPrompt(ask, response string) error {
	b.uiState.Prompt = ask
	b.sendUIState()
	defer func() {
		b.uiState.Prompt = ""
		b.sendUIState()
	}()
	errC := make(chan error, 1)
	go func() {
		for {
			err := b.sigSleep(time.Second)
			if err != nil {
				errC <- err
				return
			}
		}
	}()
	err := <-errC
	if !errors.Is(err, promptAnsweredError) {
		return err
	}
	b.uiState.CurrentMessage = response
	return nil
}

// singlePlayer plays the given file.
func (b *Backend) singlePlayer(name string, start midi.Clock) error {
	song, err := b.load(name)
	if err != nil {
		return err
	}

	defer b.allNotesOff()

	log.Printf("Playing %v.", name)

	b.uiState.PlayOne = name
	defer func() {
		b.uiState.PlayOne = ""
		b.uiState.CurrentMessage = "" // Written to by prompt.
		b.sendUIState()
	}()

	if b.prompt {
		err := b.askPrompt("Start "+name, "playing")
		if err != nil {
			return err
		}
	}

	err = b.playSong(song, start)
	if err != nil {
		return fmt.Errorf("could not play %v: %w", name, err)
	}
	return nil
}

var QuitError = errors.New("intentionally quitting")

func (b *Backend) handleMainLoopCommand(cmd Command) error {
	if !cmd.IsMainLoopCommand() {
		return b.handleCommandDuringSleep(cmd)
	}
	switch {
	case cmd.Exit:
		return nil
	case cmd.Quit:
		return QuitError
	case cmd.PlayOne != "":
		return b.singlePlayer(cmd.PlayOne, cmd.Start)
	case cmd.IsZero():
		return nil
	default:
		return fmt.Errorf("unrecognized main loop command: %+v", cmd)
	}
}

func (b *Backend) Loop() error {
	b.uiState.Err = nil
	b.uiState.CurrentMessage = ""

	// If only one file should be played, set it here.
	if b.playOnly != "" {
		b.sendUIState()
		err := b.singlePlayer(b.playOnly, 0)
		if err != nil && !errors.Is(err, exitPlaybackError) {
			return err
		}
		return QuitError
	}

	for {
		b.sendUIState()
		var cmd Command
		if b.nextCommand != nil {
			cmd = *b.nextCommand
			b.nextCommand = nil
		} else {
			cmd = <-b.Commands
		}
		b.uiState.Err = nil
		b.uiState.CurrentMessage = ""
		err := b.handleMainLoopCommand(cmd)
		if errors.Is(err, SigIntError) || errors.Is(err, QuitError) {
			return err
		} else if errors.Is(err, exitPlaybackError) {
			continue
		} else if err != nil {
			b.uiState.Err = err
			// Updated on next iteration.
		}
	}
}

func (b *Backend) Close() {
	if b.nextOutPort != nil {
		b.nextOutPort = nil
	}
	if b.outPort != nil {
		b.outPort.Close()
		b.outPort = nil
	}
	close(b.UIStates)
}
