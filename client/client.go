// Package client plays a game hosted by a remote server over a text terminal.
package client

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/minesweeper/console"
	"github.com/tomasstrnad1997/minesweeper/mines"
	"github.com/tomasstrnad1997/minesweeper/protocol"
	"github.com/tomasstrnad1997/minesweeper/render"
)

var log = logrus.New()

const eventBufferSize = 256

type EventType int

const (
	GameStarted EventType = iota
	BoardUpdated
	Message
	GameFinished
	Disconnected
)

type Event struct {
	Type EventType
	Text string
	End  protocol.GameEndType
	Err  error
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type Client struct {
	controller *protocol.ConnectionController
	out        io.Writer
	events     chan Event

	mu     sync.Mutex
	params mines.GameParams
	seed   uint64
	view   mines.Snapshot
}

func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// New registers the client's handlers on controller. Server output and the
// current view are written to out.
func New(controller *protocol.ConnectionController, out io.Writer) *Client {
	client := &Client{
		controller: controller,
		out:        &lockedWriter{w: out},
		events:     make(chan Event, eventBufferSize),
	}
	client.registerHandlers()
	return client
}

func (c *Client) Events() <-chan Event {
	return c.events
}

func (c *Client) emit(event Event) {
	select {
	case c.events <- event:
	default:
		log.WithField("type", event.Type).Warn("Event buffer full, dropping event")
	}
}

// Listen dispatches server messages in the background until the connection
// is lost, which is reported as a Disconnected event.
func (c *Client) Listen() {
	go func() {
		err := c.controller.ReadServerResponse()
		log.WithError(err).Info("Stopped listening to server")
		c.emit(Event{Type: Disconnected, Err: err})
	}()
}

func (c *Client) registerHandlers() {
	c.controller.RegisterHandler(protocol.TextMessage, func(bytes []byte) error {
		msg, err := protocol.DecodeTextMessage(bytes)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, msg)
		c.emit(Event{Type: Message, Text: msg})
		return nil
	})
	c.controller.RegisterHandler(protocol.StartGame, func(bytes []byte) error {
		start, err := protocol.DecodeGameStart(bytes)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.params = start.Params
		if start.Seed != nil {
			c.seed = *start.Seed
		}
		c.view = mines.NewHiddenSnapshot(start.Params.Rows, start.Params.Cols)
		c.mu.Unlock()
		log.WithFields(logrus.Fields{
			"rows":  start.Params.Rows,
			"cols":  start.Params.Cols,
			"bombs": start.Params.Bombs,
		}).Debug("Game started")
		c.emit(Event{Type: GameStarted})
		return nil
	})
	c.controller.RegisterHandler(protocol.CellUpdate, func(bytes []byte) error {
		updates, err := protocol.DecodeCellUpdates(bytes)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.view.Apply(updates)
		err = render.WriteIndexed(c.out, c.view)
		c.mu.Unlock()
		c.emit(Event{Type: BoardUpdated})
		return err
	})
	c.controller.RegisterHandler(protocol.GameEnd, func(bytes []byte) error {
		endType, err := protocol.DecodeGameEnd(bytes)
		if err != nil {
			return err
		}
		c.emit(Event{Type: GameFinished, End: endType})
		return nil
	})
}

func (c *Client) send(encoded []byte, err error) error {
	if err != nil {
		return err
	}
	return c.controller.SendMessage(encoded)
}

// StartGame asks the server for a new game. A nil seed lets the server pick one.
func (c *Client) StartGame(params mines.GameParams, seed *uint64) error {
	return c.send(protocol.EncodeGameStart(protocol.GameStart{Params: params, Seed: seed}))
}

func (c *Client) Move(pos mines.Position) error {
	return c.send(protocol.EncodeMove(pos))
}

func (c *Client) Reload() error {
	return c.send(protocol.EncodeRequestReload())
}

// View returns a copy of the board as last reported by the server.
func (c *Client) View() mines.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	view := make(mines.Snapshot, len(c.view))
	for row := range c.view {
		view[row] = append([]string(nil), c.view[row]...)
	}
	return view
}

func (c *Client) Params() mines.GameParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

func (c *Client) Seed() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seed
}

func (c *Client) waitForStart() error {
	for event := range c.events {
		switch event.Type {
		case GameStarted:
			return nil
		case Disconnected:
			return event.Err
		}
	}
	return nil
}

// NewConsole reads from in and writes to the client's output.
func (c *Client) NewConsole(in io.Reader) *console.Console {
	return console.New(in, c.out)
}

// readMoves forwards positions from con until the input fails or done is
// closed. A read already blocked on con finishes first, and its position is
// dropped.
func (c *Client) readMoves(con *console.Console, done <-chan struct{}, inputErr chan<- error) {
	for {
		pos, err := con.ReadPosition()
		select {
		case <-done:
			return
		default:
		}
		if err != nil {
			inputErr <- err
			return
		}
		if err := c.Move(pos); err != nil {
			inputErr <- err
			return
		}
	}
}

// Play starts a game and sends moves read from con until the server reports
// the end of the game. When the input runs out first, Play waits for the moves
// already sent to be answered and returns console.ErrInputClosed. Input read
// after Play returns is discarded.
func (c *Client) Play(con *console.Console, params mines.GameParams, seed *uint64) (protocol.GameEndType, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}
	if err := c.StartGame(params, seed); err != nil {
		return 0, err
	}
	if err := c.waitForStart(); err != nil {
		return 0, fmt.Errorf("failed to start game: %w", err)
	}
	fmt.Fprintf(c.out, "Playing %d x %d with %d bombs, seed %d\n", params.Rows, params.Cols, params.Bombs, c.Seed())

	done := make(chan struct{})
	defer close(done)
	inputErr := make(chan error, 1)
	go c.readMoves(con, done, inputErr)

	var stopErr error
	for {
		select {
		case err := <-inputErr:
			inputErr = nil
			stopErr = err
			// Moves are answered in order, so the reload answer comes after
			// every pending move has been handled.
			if err := c.Reload(); err != nil {
				return 0, err
			}
		case event := <-c.events:
			switch event.Type {
			case GameFinished:
				switch event.End {
				case protocol.Win:
					fmt.Fprintln(c.out, "CONGRATULATIONS! YOU WIN!")
				case protocol.Loss:
					fmt.Fprintln(c.out, "YOU LOSE!")
				default:
					fmt.Fprintln(c.out, "Game aborted")
				}
				return event.End, nil
			case GameStarted:
				if stopErr != nil {
					return 0, stopErr
				}
			case Disconnected:
				return 0, event.Err
			}
		}
	}
}
