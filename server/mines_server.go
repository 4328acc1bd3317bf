package server

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/minesweeper/mines"
	"github.com/tomasstrnad1997/minesweeper/protocol"
	"github.com/tomasstrnad1997/minesweeper/records"
)

var log = logrus.New()

// Player is one connection and the single session it owns.
type Player struct {
	client     net.Conn
	id         int
	game       *mines.Game
	seed       uint64
	startedAt  time.Time
	writeMutex sync.Mutex
}

type MessageHandler func(data []byte, player *Player) error

func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

type Options struct {
	// Records is optional; finished games are not saved without it.
	Records *records.Service
	// NewSeed picks a seed when the client does not send one.
	NewSeed func() uint64
	// Largest board a client may ask for. Zero means DefaultMaxRows/DefaultMaxCols.
	MaxRows int
	MaxCols int
}

const (
	DefaultMaxRows = 64
	DefaultMaxCols = 64
)

type BoardTooLargeError struct {
	Params  mines.GameParams
	MaxRows int
	MaxCols int
}

func (e *BoardTooLargeError) Error() string {
	return fmt.Sprintf("cannot create a board of %d x %d, this server allows at most %d x %d",
		e.Params.Rows, e.Params.Cols, e.MaxRows, e.MaxCols)
}

type Server struct {
	Name       string
	Port       uint16
	listener   net.Listener
	handlers   map[protocol.MessageType]MessageHandler
	players    map[int]*Player
	playersMux sync.Mutex
	records    *records.Service
	newSeed    func() uint64
	maxRows    int
	maxCols    int
	nextID     int
	wg         sync.WaitGroup
}

func (server *Server) GetNumberOfPlayers() int {
	server.playersMux.Lock()
	defer server.playersMux.Unlock()
	return len(server.players)
}

func sendMessage(data []byte, player *Player) error {
	player.writeMutex.Lock()
	defer player.writeMutex.Unlock()
	_, err := player.client.Write(data)
	return err
}

func sendTextMessage(msg string, player *Player) error {
	encoded, err := protocol.EncodeTextMessage(msg)
	if err != nil {
		return err
	}
	return sendMessage(encoded, player)
}

func sendCellUpdates(cells []mines.UpdatedCell, player *Player) error {
	if len(cells) == 0 {
		return nil
	}
	encoded, err := protocol.EncodeCellUpdates(cells)
	if err != nil {
		return err
	}
	return sendMessage(encoded, player)
}

func sendGameEnd(endType protocol.GameEndType, player *Player) error {
	encoded, err := protocol.EncodeGameEnd(endType)
	if err != nil {
		return err
	}
	return sendMessage(encoded, player)
}

func (server *Server) finishGame(player *Player) {
	if player.game == nil || server.records == nil {
		return
	}
	record, err := server.records.Finish(player.game, player.seed, player.startedAt)
	fields := logrus.Fields{"player": player.id, "seed": player.seed}
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to save game record")
		return
	}
	fields["outcome"] = record.Outcome
	fields["moves"] = record.Moves
	log.WithFields(fields).Info("Game recorded")
}

func (server *Server) checkBoardSize(params mines.GameParams) error {
	if params.Rows > server.maxRows || params.Cols > server.maxCols ||
		params.Rows*params.Cols*protocol.UpdateCellByteLength > protocol.MaxPayloadLength {
		return &BoardTooLargeError{Params: params, MaxRows: server.maxRows, MaxCols: server.maxCols}
	}
	return nil
}

func (server *Server) StartGame(start protocol.GameStart, player *Player) error {
	if err := server.checkBoardSize(start.Params); err != nil {
		return sendTextMessage(err.Error(), player)
	}
	var seed uint64
	if start.Seed != nil {
		seed = *start.Seed
	} else {
		seed = server.newSeed()
	}
	game, err := mines.NewGame(start.Params, mines.NewRand(seed))
	if err != nil {
		return sendTextMessage(err.Error(), player)
	}
	if player.game != nil && !player.game.State().Terminal() {
		server.finishGame(player)
		if err := sendGameEnd(protocol.Aborted, player); err != nil {
			return err
		}
	}
	player.game = game
	player.seed = seed
	player.startedAt = time.Now()
	log.WithFields(logrus.Fields{
		"player": player.id,
		"rows":   start.Params.Rows,
		"cols":   start.Params.Cols,
		"bombs":  start.Params.Bombs,
		"seed":   seed,
	}).Info("Starting a new game")

	startMsg, err := protocol.EncodeGameStart(protocol.GameStart{Params: start.Params, Seed: &seed})
	if err != nil {
		return err
	}
	if err := sendMessage(startMsg, player); err != nil {
		return err
	}
	return sendTextMessage(fmt.Sprintf("Starting a new game...\nNumber of bombs %d", start.Params.Bombs), player)
}

func (server *Server) makeMove(pos mines.Position, player *Player) error {
	result, err := player.game.Move(pos)
	var boundsErr *mines.OutOfBoundsError
	if errors.As(err, &boundsErr) || errors.Is(err, mines.ErrGameOver) {
		return sendTextMessage(err.Error(), player)
	}
	if err != nil {
		return err
	}
	if result.Relocation != nil {
		log.WithFields(logrus.Fields{
			"player": player.id,
			"from":   result.Relocation.From,
			"to":     result.Relocation.To,
		}).Debug("Relocated bomb on first move")
	}
	board := player.game.Board
	if err := sendCellUpdates(board.CellUpdates(result.Revealed), player); err != nil {
		return err
	}
	switch result.Result {
	case mines.GameLost:
		if err := sendCellUpdates(board.BombCellUpdates(), player); err != nil {
			return err
		}
		server.finishGame(player)
		return sendGameEnd(protocol.Loss, player)
	case mines.GameWon:
		server.finishGame(player)
		return sendGameEnd(protocol.Win, player)
	}
	return nil
}

func (server *Server) sendReload(player *Player) error {
	game := player.game
	seed := player.seed
	startMsg, err := protocol.EncodeGameStart(protocol.GameStart{Params: game.Params, Seed: &seed})
	if err != nil {
		return err
	}
	if err := sendMessage(startMsg, player); err != nil {
		return err
	}
	if err := sendCellUpdates(game.Board.RevealedCellUpdates(), player); err != nil {
		return err
	}
	if game.State() == mines.StateLost {
		return sendCellUpdates(game.Board.BombCellUpdates(), player)
	}
	return nil
}

func (server *Server) HandleMessage(data []byte, player *Player) error {
	if len(data) == 0 {
		return fmt.Errorf("cannot handle empty message")
	}
	msgType := protocol.MessageType(data[0])
	handler, exists := server.handlers[msgType]
	if !exists {
		return fmt.Errorf("no handler registered for message type: %s", msgType)
	}
	return handler(data, player)
}

func (server *Server) registerHandler(msgType protocol.MessageType, handler MessageHandler) {
	server.handlers[msgType] = handler
}

func (server *Server) RegisterHandlers() {
	server.registerHandler(protocol.StartGame, func(bytes []byte, player *Player) error {
		start, err := protocol.DecodeGameStart(bytes)
		if err != nil {
			return err
		}
		return server.StartGame(*start, player)
	})
	server.registerHandler(protocol.MoveCommand, func(bytes []byte, player *Player) error {
		if player.game == nil {
			return sendTextMessage("Game not running. Cant make moves.", player)
		}
		pos, err := protocol.DecodeMove(bytes)
		if err != nil {
			return err
		}
		return server.makeMove(*pos, player)
	})
	server.registerHandler(protocol.RequestReload, func(bytes []byte, player *Player) error {
		if err := protocol.DecodeRequestReload(bytes); err != nil {
			return err
		}
		if player.game == nil {
			return sendTextMessage("Game not running. Nothing to reload.", player)
		}
		return server.sendReload(player)
	})
}

func (server *Server) handleRequest(player *Player) {
	defer server.wg.Done()
	fields := logrus.Fields{"player": player.id, "remote": player.client.RemoteAddr().String()}
	log.WithFields(fields).Info("Player connected")
	sendTextMessage(fmt.Sprintf("Connected to %s", server.Name), player)

	reader := bufio.NewReader(player.client)
	for {
		message, err := protocol.ReadMessage(reader)
		if err != nil {
			break
		}
		// Moves of one session are handled strictly one after another.
		if err := server.HandleMessage(message, player); err != nil {
			log.WithFields(fields).WithError(err).Warn("Failed to handle message")
		}
	}

	log.WithFields(fields).Info("Player disconnected")
	if player.game != nil && !player.game.State().Terminal() {
		server.finishGame(player)
	}
	player.client.Close()
	server.playersMux.Lock()
	delete(server.players, player.id)
	server.playersMux.Unlock()
}

func (server *Server) serverLoop() {
	defer server.wg.Done()
	for {
		conn, err := server.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.WithError(err).Error("Accept failed")
			}
			return
		}
		server.playersMux.Lock()
		server.nextID++
		player := &Player{id: server.nextID, client: conn}
		server.players[player.id] = player
		server.playersMux.Unlock()
		server.wg.Add(1)
		go server.handleRequest(player)
	}
}

func createServer(name string, port uint16, opts Options) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}
	newSeed := opts.NewSeed
	if newSeed == nil {
		newSeed = rand.Uint64
	}
	maxRows, maxCols := opts.MaxRows, opts.MaxCols
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if maxCols <= 0 {
		maxCols = DefaultMaxCols
	}
	server := &Server{
		Name:     name,
		Port:     uint16(listener.Addr().(*net.TCPAddr).Port),
		listener: listener,
		handlers: make(map[protocol.MessageType]MessageHandler),
		players:  make(map[int]*Player),
		records:  opts.Records,
		newSeed:  newSeed,
		maxRows:  maxRows,
		maxCols:  maxCols,
	}
	return server, nil
}

// SpawnServer starts listening on port (0 picks a free one) and serves
// connections in the background.
func SpawnServer(name string, port uint16, opts Options) (*Server, error) {
	server, err := createServer(name, port, opts)
	if err != nil {
		return nil, err
	}
	server.RegisterHandlers()
	server.wg.Add(1)
	go server.serverLoop()
	return server, nil
}

// Close stops accepting connections, disconnects every player and waits for
// their sessions to be recorded.
func (server *Server) Close() error {
	err := server.listener.Close()
	server.playersMux.Lock()
	for _, player := range server.players {
		player.client.Close()
	}
	server.playersMux.Unlock()
	server.wg.Wait()
	return err
}
