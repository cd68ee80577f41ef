// Package dmxserial drives an Enttec DMX USB Pro compatible widget over a
// serial port.
package dmxserial

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

const (
	startDelimiter = 0x7E
	endDelimiter   = 0xE7

	// labelSendDMX is "Output Only Send DMX Packet Request".
	labelSendDMX = 6

	baudRate = 57600
	maxSlots = 512
)

// Widget sends one universe to a DMX USB Pro. Frames for any other
// universe are ignored.
type Widget struct {
	mu       sync.Mutex
	port     io.WriteCloser
	universe uint16
}

// Open opens the named serial port and drives universe from it.
func Open(portName string, universe uint16) (*Widget, error) {
	mode := &serial.Mode{BaudRate: baudRate}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return New(port, universe), nil
}

// New wraps an already open port.
func New(port io.WriteCloser, universe uint16) *Widget {
	return &Widget{port: port, universe: universe}
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// WriteUniverse sends dmx when universe is the one this widget drives.
func (w *Widget) WriteUniverse(universe uint16, dmx []byte) error {
	if universe != w.universe {
		return nil
	}
	if len(dmx) > maxSlots {
		return errors.New("dmx length must be <= 512")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.port.Write(encodeFrame(dmx)); err != nil {
		return fmt.Errorf("dmx widget write: %w", err)
	}
	return nil
}

// Close closes the serial port.
func (w *Widget) Close() error { return w.port.Close() }

// encodeFrame wraps dmx in a widget message with a leading 0x00 start code.
func encodeFrame(dmx []byte) []byte {
	n := len(dmx) + 1
	frame := make([]byte, 0, n+5)
	frame = append(frame, startDelimiter, labelSendDMX, byte(n&0xFF), byte(n>>8), 0x00)
	frame = append(frame, dmx...)
	return append(frame, endDelimiter)
}
