package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tomasstrnad1997/minesweeper/mines"
)

type MessageType byte

const (
	MoveCommand   MessageType = 0x01
	TextMessage   MessageType = 0x02
	StartGame     MessageType = 0x04
	CellUpdate    MessageType = 0x05
	RequestReload MessageType = 0x06
	GameEnd       MessageType = 0x07
)

func (t MessageType) String() string {
	switch t {
	case MoveCommand:
		return "MoveCommand"
	case TextMessage:
		return "TextMessage"
	case StartGame:
		return "StartGame"
	case CellUpdate:
		return "CellUpdate"
	case RequestReload:
		return "RequestReload"
	case GameEnd:
		return "GameEnd"
	default:
		return fmt.Sprintf("MessageType(%#x)", byte(t))
	}
}

// Custom flags of special second byte
const (
	HasSeedFlag byte = 0x01
)

type GameEndType byte

const (
	Win     GameEndType = 0x01
	Loss    GameEndType = 0x02
	Aborted GameEndType = 0x03
)

func (t GameEndType) String() string {
	switch t {
	case Win:
		return "win"
	case Loss:
		return "loss"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("GameEndType(%#x)", byte(t))
	}
}

const (
	HeaderLength         = 6
	MoveByteLength       = 8
	GameStartByteLength  = 12
	SeedByteLength       = 8
	UpdateCellByteLength = 9
	// Fits a CellUpdate covering every cell of a 256 x 256 board.
	MaxPayloadLength = 256 * 256 * UpdateCellByteLength
)

var (
	ErrInvalidPayloadSize = errors.New("invalid payload size")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrShortMessage       = errors.New("data too short to decode")
)

type GameStart struct {
	Params mines.GameParams
	// Nil when the server should pick a random seed.
	Seed *uint64
}

func checkAndDecodeLength(data []byte, message MessageType) (int, error) {
	if len(data) < HeaderLength {
		return 0, ErrShortMessage
	}
	if MessageType(data[0]) != message {
		return 0, fmt.Errorf("%w: expected %s, received %s", ErrInvalidMessageType, message, MessageType(data[0]))
	}
	payloadLength := int(binary.BigEndian.Uint32(data[2:6]))
	if payloadLength != len(data)-HeaderLength {
		return payloadLength, fmt.Errorf("%w: header says %d, got %d", ErrInvalidPayloadSize, payloadLength, len(data)-HeaderLength)
	}
	return payloadLength, nil
}

// PayloadLength reads the payload length from a message header.
func PayloadLength(header []byte) int {
	return int(binary.BigEndian.Uint32(header[2:HeaderLength]))
}

func intToBytes(i int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(int32(i)))
	return buf
}

func bytesToInt(bytes []byte) int {
	return int(int32(binary.BigEndian.Uint32(bytes)))
}

func writeHeader(buf *bytes.Buffer, tp MessageType, flags byte, length int) {
	buf.WriteByte(byte(tp))
	buf.WriteByte(flags)
	binary.Write(buf, binary.BigEndian, uint32(length))
}

func EncodeMove(pos mines.Position) ([]byte, error) {
	var buf bytes.Buffer
	writeHeader(&buf, MoveCommand, 0x00, MoveByteLength)
	buf.Write(intToBytes(pos.Row))
	buf.Write(intToBytes(pos.Col))
	return buf.Bytes(), nil
}

func DecodeMove(data []byte) (*mines.Position, error) {
	payloadLength, err := checkAndDecodeLength(data, MoveCommand)
	if err != nil {
		return nil, err
	}
	if payloadLength != MoveByteLength {
		return nil, fmt.Errorf("%w: move payload %d", ErrInvalidPayloadSize, payloadLength)
	}
	payload := data[HeaderLength:]
	return &mines.Position{Row: bytesToInt(payload[0:4]), Col: bytesToInt(payload[4:8])}, nil
}

func EncodeTextMessage(message string) ([]byte, error) {
	var buf bytes.Buffer
	payload := []byte(message)
	writeHeader(&buf, TextMessage, 0x00, len(payload))
	buf.Write(payload)
	return buf.Bytes(), nil
}

func DecodeTextMessage(data []byte) (string, error) {
	if _, err := checkAndDecodeLength(data, TextMessage); err != nil {
		return "", err
	}
	return string(data[HeaderLength:]), nil
}

func EncodeGameStart(start GameStart) ([]byte, error) {
	var buf bytes.Buffer
	var flags byte = 0x00
	payloadLength := GameStartByteLength
	if start.Seed != nil {
		flags |= HasSeedFlag
		payloadLength += SeedByteLength
	}
	writeHeader(&buf, StartGame, flags, payloadLength)
	buf.Write(intToBytes(start.Params.Rows))
	buf.Write(intToBytes(start.Params.Cols))
	buf.Write(intToBytes(start.Params.Bombs))
	if start.Seed != nil {
		if err := binary.Write(&buf, binary.BigEndian, *start.Seed); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func DecodeGameStart(data []byte) (*GameStart, error) {
	payloadLength, err := checkAndDecodeLength(data, StartGame)
	if err != nil {
		return nil, err
	}
	hasSeed := data[1]&HasSeedFlag != 0
	expected := GameStartByteLength
	if hasSeed {
		expected += SeedByteLength
	}
	if payloadLength != expected {
		return nil, fmt.Errorf("%w: game start payload %d", ErrInvalidPayloadSize, payloadLength)
	}
	payload := data[HeaderLength:]
	start := &GameStart{Params: mines.GameParams{
		Rows:  bytesToInt(payload[0:4]),
		Cols:  bytesToInt(payload[4:8]),
		Bombs: bytesToInt(payload[8:12]),
	}}
	if hasSeed {
		seed := binary.BigEndian.Uint64(payload[12:20])
		start.Seed = &seed
	}
	return start, nil
}

func encodeCellUpdate(cell mines.UpdatedCell) []byte {
	data := make([]byte, UpdateCellByteLength)
	copy(data[0:4], intToBytes(cell.Row))
	copy(data[4:8], intToBytes(cell.Col))
	data[8] = cell.Value
	return data
}

func EncodeCellUpdates(cells []mines.UpdatedCell) ([]byte, error) {
	var buf bytes.Buffer
	payloadLength := len(cells) * UpdateCellByteLength
	writeHeader(&buf, CellUpdate, 0x00, payloadLength)
	for _, cell := range cells {
		buf.Write(encodeCellUpdate(cell))
	}
	if payloadLength+HeaderLength != buf.Len() {
		return nil, fmt.Errorf("incorrect payload length while encoding cell updates")
	}
	return buf.Bytes(), nil
}

func decodeCellUpdate(data []byte) mines.UpdatedCell {
	return mines.UpdatedCell{
		Row:   bytesToInt(data[0:4]),
		Col:   bytesToInt(data[4:8]),
		Value: data[8],
	}
}

func DecodeCellUpdates(data []byte) ([]mines.UpdatedCell, error) {
	payloadLength, err := checkAndDecodeLength(data, CellUpdate)
	if err != nil {
		return nil, err
	}
	if payloadLength%UpdateCellByteLength != 0 {
		return nil, fmt.Errorf("%w: update cells payload %d", ErrInvalidPayloadSize, payloadLength)
	}
	payload := data[HeaderLength:]
	cells := make([]mines.UpdatedCell, payloadLength/UpdateCellByteLength)
	for i := range cells {
		cells[i] = decodeCellUpdate(payload[i*UpdateCellByteLength : (i+1)*UpdateCellByteLength])
	}
	return cells, nil
}

func EncodeRequestReload() ([]byte, error) {
	var buf bytes.Buffer
	writeHeader(&buf, RequestReload, 0x00, 0)
	return buf.Bytes(), nil
}

func DecodeRequestReload(data []byte) error {
	_, err := checkAndDecodeLength(data, RequestReload)
	return err
}

func EncodeGameEnd(endType GameEndType) ([]byte, error) {
	var buf bytes.Buffer
	writeHeader(&buf, GameEnd, 0x00, 1)
	buf.WriteByte(byte(endType))
	return buf.Bytes(), nil
}

func DecodeGameEnd(data []byte) (GameEndType, error) {
	payloadLength, err := checkAndDecodeLength(data, GameEnd)
	if err != nil {
		return 0, err
	}
	if payloadLength != 1 {
		return 0, fmt.Errorf("%w: game end payload %d", ErrInvalidPayloadSize, payloadLength)
	}
	return GameEndType(data[HeaderLength]), nil
}
