package server_test

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomasstrnad1997/minesweeper/mines"
	"github.com/tomasstrnad1997/minesweeper/protocol"
	"github.com/tomasstrnad1997/minesweeper/records"
	"github.com/tomasstrnad1997/minesweeper/server"
)

type memoryStore struct {
	mu      sync.Mutex
	records []records.Record
}

func (m *memoryStore) SaveRecord(record *records.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryStore) ListRecords(limit int) ([]records.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]records.Record{}, m.records...), nil
}

func (m *memoryStore) CountByOutcome() (map[records.Outcome]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[records.Outcome]int)
	for _, record := range m.records {
		counts[record.Outcome]++
	}
	return counts, nil
}

type testClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func spawn(t *testing.T, store records.Store) *server.Server {
	t.Helper()
	srv, err := server.SpawnServer("Test server", 0, server.Options{
		Records: &records.Service{Store: store},
		NewSeed: func() uint64 { return 7 },
	})
	if err != nil {
		t.Fatalf("Failed to spawn server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func connect(t *testing.T, srv *server.Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", net.JoinHostPort("localhost", strconv.Itoa(int(srv.Port))))
	if err != nil {
		t.Fatalf("Cannot connect to server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	client := &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
	text := client.expectText()
	if !strings.Contains(text, "Test server") {
		t.Fatalf("Unexpected greeting %q", text)
	}
	return client
}

func (c *testClient) send(data []byte, err error) {
	c.t.Helper()
	if err != nil {
		c.t.Fatalf("Failed to encode message: %v", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		c.t.Fatalf("Failed to send message: %v", err)
	}
}

func (c *testClient) read() []byte {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	message, err := protocol.ReadMessage(c.reader)
	if err != nil {
		c.t.Fatalf("Lost connection to server: %v", err)
	}
	return message
}

func (c *testClient) expectText() string {
	c.t.Helper()
	text, err := protocol.DecodeTextMessage(c.read())
	if err != nil {
		c.t.Fatalf("Expected text message: %v", err)
	}
	return text
}

func (c *testClient) expectUpdates() []mines.UpdatedCell {
	c.t.Helper()
	cells, err := protocol.DecodeCellUpdates(c.read())
	if err != nil {
		c.t.Fatalf("Expected cell updates: %v", err)
	}
	return cells
}

func (c *testClient) expectGameEnd(expected protocol.GameEndType) {
	c.t.Helper()
	endType, err := protocol.DecodeGameEnd(c.read())
	if err != nil {
		c.t.Fatalf("Expected game end: %v", err)
	}
	if endType != expected {
		c.t.Fatalf("Expected game end %d, got %d", expected, endType)
	}
}

func (c *testClient) startGame(params mines.GameParams, seed *uint64) *protocol.GameStart {
	c.t.Helper()
	c.send(protocol.EncodeGameStart(protocol.GameStart{Params: params, Seed: seed}))
	start, err := protocol.DecodeGameStart(c.read())
	if err != nil {
		c.t.Fatalf("Expected game start: %v", err)
	}
	if start.Params != params || start.Seed == nil {
		c.t.Fatalf("Unexpected game start %+v", start)
	}
	c.expectText()
	return start
}

func sameUpdates(a, b []mines.UpdatedCell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func findCell(board *mines.Board, match func(cell *mines.Cell) bool) *mines.Cell {
	var found *mines.Cell
	board.Each(func(cell *mines.Cell) {
		if found == nil && match(cell) {
			found = cell
		}
	})
	return found
}

func TestSessionUntilLoss(t *testing.T) {
	store := &memoryStore{}
	srv := spawn(t, store)
	client := connect(t, srv)

	seed := uint64(42)
	params := mines.Presets[mines.Easy]
	start := client.startGame(params, &seed)
	if *start.Seed != seed {
		t.Fatalf("Server changed seed to %d", *start.Seed)
	}
	mirror, err := mines.NewGame(params, mines.NewRand(seed))
	if err != nil {
		t.Fatalf("Failed to create mirror game: %v", err)
	}

	// First move on a bomb: the server relocates it exactly like the mirror.
	first := findCell(mirror.Board, func(cell *mines.Cell) bool { return cell.IsBomb() }).Position()
	result, err := mirror.Move(first)
	if err != nil {
		t.Fatalf("Mirror move failed: %v", err)
	}
	client.send(protocol.EncodeMove(first))
	if updates := client.expectUpdates(); !sameUpdates(updates, mirror.Board.CellUpdates(result.Revealed)) {
		t.Fatalf("Server updates %v differ from mirror", updates)
	}
	if result.Result == mines.GameWon {
		client.expectGameEnd(protocol.Win)
		return
	}

	client.send(protocol.EncodeMove(mines.Position{Row: 100, Col: 0}))
	if text := client.expectText(); !strings.Contains(text, "out of range") {
		t.Fatalf("Unexpected out of bounds reply %q", text)
	}

	bomb := findCell(mirror.Board, func(cell *mines.Cell) bool { return cell.IsBomb() }).Position()
	client.send(protocol.EncodeMove(bomb))
	revealed := client.expectUpdates()
	if len(revealed) != 1 || revealed[0].Value != mines.ShowMine {
		t.Fatalf("Unexpected losing updates %v", revealed)
	}
	if bombs := client.expectUpdates(); len(bombs) != params.Bombs {
		t.Fatalf("Expected %d bombs shown, got %d", params.Bombs, len(bombs))
	}
	client.expectGameEnd(protocol.Loss)

	client.send(protocol.EncodeMove(first))
	if text := client.expectText(); !strings.Contains(text, "game is over") {
		t.Fatalf("Unexpected game over reply %q", text)
	}

	client.send(protocol.EncodeRequestReload())
	if _, err := protocol.DecodeGameStart(client.read()); err != nil {
		t.Fatalf("Expected game start on reload: %v", err)
	}
	view := mines.NewHiddenSnapshot(params.Rows, params.Cols)
	view.Apply(client.expectUpdates())
	view.Apply(client.expectUpdates())
	mirror.Move(bomb)
	expected := mirror.LoseSnapshot()
	for row := range expected {
		for col := range expected[row] {
			if view[row][col] != expected[row][col] {
				t.Fatalf("Reloaded view differs at (%d, %d): %q != %q", row, col, view[row][col], expected[row][col])
			}
		}
	}

	counts, err := store.CountByOutcome()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	saved, err := store.ListRecords(10)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if counts[records.Lost] != 1 || len(saved) != 1 {
		t.Fatalf("Unexpected records %v", counts)
	}
	if saved[0].Seed != seed || saved[0].Moves != 2 {
		t.Fatalf("Unexpected record %+v", saved[0])
	}
}

func TestMoveBeforeStart(t *testing.T) {
	srv := spawn(t, &memoryStore{})
	client := connect(t, srv)
	client.send(protocol.EncodeMove(mines.Position{Row: 0, Col: 0}))
	if text := client.expectText(); !strings.Contains(text, "Game not running") {
		t.Fatalf("Unexpected reply %q", text)
	}
}

func TestInvalidGameStart(t *testing.T) {
	srv := spawn(t, &memoryStore{})
	client := connect(t, srv)
	client.send(protocol.EncodeGameStart(protocol.GameStart{Params: mines.GameParams{Rows: 3, Cols: 3, Bombs: 9}}))
	if text := client.expectText(); !strings.Contains(text, "not enough space") {
		t.Fatalf("Unexpected reply %q", text)
	}

	client.send(protocol.EncodeGameStart(protocol.GameStart{Params: mines.GameParams{Rows: 1 << 20, Cols: 1 << 10, Bombs: 1}}))
	if text := client.expectText(); !strings.Contains(text, "at most 64 x 64") {
		t.Fatalf("Unexpected reply to oversized board %q", text)
	}
	// The session survives and still accepts a regular game.
	client.startGame(mines.Presets[mines.Hard], nil)
}

func TestConfiguredBoardLimit(t *testing.T) {
	srv, err := server.SpawnServer("Small server", 0, server.Options{MaxRows: 9, MaxCols: 9})
	if err != nil {
		t.Fatalf("Failed to spawn server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	conn, err := net.Dial("tcp", net.JoinHostPort("localhost", strconv.Itoa(int(srv.Port))))
	if err != nil {
		t.Fatalf("Cannot connect to server: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	client := &testClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
	client.expectText()

	client.send(protocol.EncodeGameStart(protocol.GameStart{Params: mines.Presets[mines.Medium]}))
	if text := client.expectText(); !strings.Contains(text, "at most 9 x 9") {
		t.Fatalf("Unexpected reply %q", text)
	}
	client.startGame(mines.Presets[mines.Easy], nil)
}

func TestAbortedGames(t *testing.T) {
	store := &memoryStore{}
	srv := spawn(t, store)
	client := connect(t, srv)

	start := client.startGame(mines.Presets[mines.Medium], nil)
	if *start.Seed != 7 {
		t.Fatalf("Expected server seed 7, got %d", *start.Seed)
	}
	// Restarting aborts the running game.
	client.send(protocol.EncodeGameStart(protocol.GameStart{Params: mines.Presets[mines.Easy]}))
	client.expectGameEnd(protocol.Aborted)
	if _, err := protocol.DecodeGameStart(client.read()); err != nil {
		t.Fatalf("Expected game start: %v", err)
	}
	client.expectText()

	client.conn.Close()
	if err := srv.Close(); err != nil {
		t.Fatalf("Failed to close server: %v", err)
	}
	counts, err := store.CountByOutcome()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if counts[records.Aborted] != 2 {
		t.Fatalf("Expected 2 aborted games, got %v", counts)
	}
}
