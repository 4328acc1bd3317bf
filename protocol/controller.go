package protocol

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

const (
	maxReconnectAttempts = 10
	reconnectDelay       = 2 * time.Second
	messageChannelSize   = 64
	sendTimeout          = 5 * time.Second
)

type MessageHandler func([]byte) error

type ConnectionController struct {
	server           net.Conn
	messageHandlers  map[MessageType]MessageHandler
	messageChannel   chan []byte
	connected        bool
	mu               sync.Mutex
	host             string
	port             uint16
	AttemptReconnect bool
}

// ReadMessage reads one framed message, header included. Payloads longer than
// MaxPayloadLength are rejected before anything is allocated for them.
func ReadMessage(reader io.Reader) ([]byte, error) {
	header := make([]byte, HeaderLength)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, err
	}
	payloadLength := PayloadLength(header)
	if payloadLength > MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d exceeds limit %d", ErrInvalidPayloadSize, payloadLength, MaxPayloadLength)
	}
	message := make([]byte, payloadLength+HeaderLength)
	copy(message[0:HeaderLength], header)
	if _, err := io.ReadFull(reader, message[HeaderLength:]); err != nil {
		return nil, err
	}
	return message, nil
}

func CreateConnectionController() *ConnectionController {
	controller := &ConnectionController{
		messageHandlers: make(map[MessageType]MessageHandler),
		messageChannel:  make(chan []byte, messageChannelSize),
	}
	controller.StartWriter()
	return controller
}

func (controller *ConnectionController) Connected() bool {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.connected
}

func (controller *ConnectionController) conn() net.Conn {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.server
}

func (controller *ConnectionController) GetServerAddress() string {
	if !controller.Connected() {
		return ""
	}
	return controller.conn().RemoteAddr().String()
}

func (controller *ConnectionController) StartWriter() {
	go func() {
		for message := range controller.messageChannel {
			if !controller.Connected() {
				log.Warn("Attempted to write to not connected server")
				continue
			}
			if _, err := controller.conn().Write(message); err != nil {
				log.WithError(err).Error("Error writing to server")
			}
		}
	}()
}

func (controller *ConnectionController) SendMessage(message []byte) error {
	select {
	case controller.messageChannel <- message:
		return nil
	case <-time.After(sendTimeout):
		return fmt.Errorf("failed to write to message channel")
	}
}

func (controller *ConnectionController) SetConnection(conn net.Conn) error {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.connected {
		return fmt.Errorf("connector is already connected")
	}
	controller.server = conn
	controller.connected = true
	return nil
}

func (controller *ConnectionController) Connect(host string, port uint16) error {
	conn, err := net.Dial("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return err
	}
	controller.mu.Lock()
	controller.host = host
	controller.port = port
	controller.mu.Unlock()
	if err := controller.SetConnection(conn); err != nil {
		conn.Close()
		return err
	}
	return nil
}

func (controller *ConnectionController) Close() error {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if !controller.connected {
		return nil
	}
	controller.connected = false
	return controller.server.Close()
}

func (controller *ConnectionController) TryReconnect() bool {
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		log.WithFields(logrus.Fields{"attempt": attempt, "max": maxReconnectAttempts}).Info("Attempting to reconnect")
		time.Sleep(reconnectDelay)
		if err := controller.Connect(controller.host, controller.port); err == nil {
			log.Info("Reconnected successfully")
			return true
		}
	}
	log.Error("Failed to reconnect after max attempts")
	return false
}

func (controller *ConnectionController) RegisterHandler(msgType MessageType, handlerFunc MessageHandler) {
	controller.messageHandlers[msgType] = handlerFunc
}

func (controller *ConnectionController) HandleMessage(bytes []byte) error {
	if len(bytes) == 0 {
		return fmt.Errorf("cannot handle empty message")
	}
	msgType := MessageType(bytes[0])
	handlerFunc, exists := controller.messageHandlers[msgType]
	if !exists {
		return fmt.Errorf("no handler registered for message type: %s", msgType)
	}
	return handlerFunc(bytes)
}

// ReadServerResponse dispatches incoming messages until the connection is lost
// and, if enabled, reconnecting fails.
func (controller *ConnectionController) ReadServerResponse() error {
	reader := bufio.NewReader(controller.conn())
	for {
		message, err := ReadMessage(reader)
		if err != nil {
			controller.mu.Lock()
			controller.connected = false
			controller.mu.Unlock()
			if controller.AttemptReconnect && controller.TryReconnect() {
				reader = bufio.NewReader(controller.conn())
				continue
			}
			return fmt.Errorf("lost connection to server: %w", err)
		}
		if err := controller.HandleMessage(message); err != nil {
			log.WithError(err).Warn("Failed to handle message")
		}
	}
}
