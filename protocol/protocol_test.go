package protocol_test

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/tomasstrnad1997/minesweeper/mines"
	"github.com/tomasstrnad1997/minesweeper/protocol"
)

func TestMoveEncoding(t *testing.T) {
	pos := mines.Position{Row: 12, Col: -3}
	encoded, err := protocol.EncodeMove(pos)
	if err != nil {
		t.Fatalf("Failed to encode move: %v", err)
	}
	decoded, err := protocol.DecodeMove(encoded)
	if err != nil {
		t.Fatalf("Failed to decode move: %v", err)
	}
	if *decoded != pos {
		t.Fatalf("Decoded %s does not match original %s", decoded, pos)
	}
}

func TestGameStartEncoding(t *testing.T) {
	seed := uint64(0xdeadbeefcafe)
	starts := []protocol.GameStart{
		{Params: mines.Presets[mines.Hard]},
		{Params: mines.Presets[mines.Easy], Seed: &seed},
	}
	for _, start := range starts {
		encoded, err := protocol.EncodeGameStart(start)
		if err != nil {
			t.Fatalf("Failed to encode game start: %v", err)
		}
		decoded, err := protocol.DecodeGameStart(encoded)
		if err != nil {
			t.Fatalf("Failed to decode game start: %v", err)
		}
		if decoded.Params != start.Params {
			t.Fatalf("Decoded params %+v do not match %+v", decoded.Params, start.Params)
		}
		if (decoded.Seed == nil) != (start.Seed == nil) {
			t.Fatalf("Seed presence changed")
		}
		if start.Seed != nil && *decoded.Seed != *start.Seed {
			t.Fatalf("Decoded seed %d does not match %d", *decoded.Seed, *start.Seed)
		}
	}
}

func TestCellUpdatesEncoding(t *testing.T) {
	cells := []mines.UpdatedCell{
		{Row: 0, Col: 0, Value: 0},
		{Row: 15, Col: 29, Value: 8},
		{Row: 3, Col: 4, Value: mines.ShowMine},
	}
	encoded, err := protocol.EncodeCellUpdates(cells)
	if err != nil {
		t.Fatalf("Failed to encode cell updates: %v", err)
	}
	decoded, err := protocol.DecodeCellUpdates(encoded)
	if err != nil {
		t.Fatalf("Failed to decode cell updates: %v", err)
	}
	if len(decoded) != len(cells) {
		t.Fatalf("Expected %d cells, got %d", len(cells), len(decoded))
	}
	for i := range cells {
		if decoded[i] != cells[i] {
			t.Fatalf("Cell %d: decoded %+v does not match %+v", i, decoded[i], cells[i])
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	text, err := protocol.EncodeTextMessage("hello")
	if err != nil {
		t.Fatalf("Failed to encode text: %v", err)
	}
	if _, err := protocol.DecodeMove(text); !errors.Is(err, protocol.ErrInvalidMessageType) {
		t.Fatalf("Expected ErrInvalidMessageType, got: %v", err)
	}
	if _, err := protocol.DecodeTextMessage(text[:len(text)-1]); !errors.Is(err, protocol.ErrInvalidPayloadSize) {
		t.Fatalf("Expected ErrInvalidPayloadSize, got: %v", err)
	}
	if _, err := protocol.DecodeGameEnd([]byte{0x07}); !errors.Is(err, protocol.ErrShortMessage) {
		t.Fatalf("Expected ErrShortMessage, got: %v", err)
	}
}

func TestReadMessage(t *testing.T) {
	end, err := protocol.EncodeGameEnd(protocol.Loss)
	if err != nil {
		t.Fatalf("Failed to encode game end: %v", err)
	}
	text, err := protocol.EncodeTextMessage("YOU LOSE!")
	if err != nil {
		t.Fatalf("Failed to encode text: %v", err)
	}
	reader := bytes.NewReader(append(append([]byte{}, end...), text...))

	first, err := protocol.ReadMessage(reader)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	endType, err := protocol.DecodeGameEnd(first)
	if err != nil || endType != protocol.Loss {
		t.Fatalf("Expected Loss, got %v (%v)", endType, err)
	}
	second, err := protocol.ReadMessage(reader)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	message, err := protocol.DecodeTextMessage(second)
	if err != nil || message != "YOU LOSE!" {
		t.Fatalf("Unexpected text %q (%v)", message, err)
	}

	// A header announcing 1 GiB is rejected without waiting for the payload.
	oversized := []byte{byte(protocol.TextMessage), 0x00, 0x40, 0x00, 0x00, 0x00}
	if _, err := protocol.ReadMessage(bytes.NewReader(oversized)); !errors.Is(err, protocol.ErrInvalidPayloadSize) {
		t.Fatalf("Expected ErrInvalidPayloadSize for oversized header, got: %v", err)
	}
}

func TestReadLargestCellUpdate(t *testing.T) {
	cells := make([]mines.UpdatedCell, protocol.MaxPayloadLength/protocol.UpdateCellByteLength)
	encoded, err := protocol.EncodeCellUpdates(cells)
	if err != nil {
		t.Fatalf("Failed to encode cell updates: %v", err)
	}
	message, err := protocol.ReadMessage(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("Failed to read full board update: %v", err)
	}
	if len(message) != len(encoded) {
		t.Fatalf("Expected %d bytes, got %d", len(encoded), len(message))
	}
}

func TestControllerDispatch(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	controller := protocol.CreateConnectionController()
	if err := controller.SetConnection(clientConn); err != nil {
		t.Fatalf("Failed to set connection: %v", err)
	}
	received := make(chan string, 1)
	controller.RegisterHandler(protocol.TextMessage, func(data []byte) error {
		text, err := protocol.DecodeTextMessage(data)
		if err != nil {
			return err
		}
		received <- text
		return nil
	})
	go controller.ReadServerResponse()

	move, err := protocol.EncodeMove(mines.Position{Row: 1, Col: 2})
	if err != nil {
		t.Fatalf("Failed to encode move: %v", err)
	}
	if err := controller.SendMessage(move); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	serverConn.SetDeadline(time.Now().Add(2 * time.Second))
	message, err := protocol.ReadMessage(serverConn)
	if err != nil {
		t.Fatalf("Server failed to read: %v", err)
	}
	pos, err := protocol.DecodeMove(message)
	if err != nil || *pos != (mines.Position{Row: 1, Col: 2}) {
		t.Fatalf("Unexpected move %v (%v)", pos, err)
	}

	text, err := protocol.EncodeTextMessage("ack")
	if err != nil {
		t.Fatalf("Failed to encode text: %v", err)
	}
	if _, err := serverConn.Write(text); err != nil {
		t.Fatalf("Server failed to write: %v", err)
	}
	select {
	case got := <-received:
		if got != "ack" {
			t.Fatalf("Expected ack, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Handler not called")
	}
	controller.Close()
}
