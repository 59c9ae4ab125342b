package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// readBufferSize is the size of a single read from the port.
const readBufferSize = 1024

var (
	// ErrUnavailable is returned for writes while the port is not open.
	ErrUnavailable = errors.New("device unavailable")
	// errPortRequired is returned when no device path is configured.
	errPortRequired = errors.New("device port must be provided")
)

// Port is the byte channel to the controller.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a port by name at the given baud rate.
type Opener func(name string, baudRate int) (Port, error)

// OpenSerial opens a serial port in 8N1 mode.
func OpenSerial(name string, baudRate int) (Port, error) {
	if name == "" {
		return nil, errPortRequired
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}

	return port, nil
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	// Name is the device path.
	Name string
	// IsUSB is true for USB serial adapters.
	IsUSB bool
	// VID is the USB vendor ID.
	VID string
	// PID is the USB product ID.
	PID string
	// SerialNumber is the USB serial number.
	SerialNumber string
	// Product is the USB product description.
	Product string
}

// ListPorts enumerates serial ports available on the host.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}

	return ports, nil
}

// Device guards a Port for concurrent writers and a single reader.
type Device struct {
	// name is the device path, for logs.
	name string
	// mu serializes writes and guards port.
	mu sync.Mutex
	// port is nil until Attach and after Close.
	port Port
}

// New returns a detached device; writes fail with ErrUnavailable until Attach.
func New(name string) *Device {
	return &Device{name: name}
}

// Open opens the named port with opener and returns an attached device.
func Open(name string, baudRate int, opener Opener) (*Device, error) {
	if opener == nil {
		opener = OpenSerial
	}

	port, err := opener(name, baudRate)
	if err != nil {
		return nil, err
	}

	d := New(name)
	d.Attach(port)

	return d, nil
}

// Name returns the device path.
func (d *Device) Name() string {
	return d.name
}

// Attach installs an opened port.
func (d *Device) Attach(port Port) {
	d.mu.Lock()
	d.port = port
	d.mu.Unlock()
}

// Available reports whether a port is attached.
func (d *Device) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.port != nil
}

// Write sends p as one unbroken sequence.
func (d *Device) Write(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return ErrUnavailable
	}

	for len(p) > 0 {
		n, err := d.port.Write(p)
		if err != nil {
			return fmt.Errorf("write to %s: %w", d.name, err)
		}

		if n == 0 {
			return fmt.Errorf("write to %s: %w", d.name, io.ErrShortWrite)
		}

		p = p[n:]
	}

	return nil
}

// Close detaches and closes the port. Closing a detached device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	port := d.port
	d.port = nil
	d.mu.Unlock()

	if port == nil {
		return nil
	}

	if err := port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", d.name, err)
	}

	return nil
}

// current returns the attached port, if any.
func (d *Device) current() Port {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.port
}

// ReadLoop forwards raw chunks to out until the context ends or the port fails.
// Each chunk is a fresh slice owned by the receiver. A nil error means the
// context was canceled; any other error is a device failure.
func (d *Device) ReadLoop(ctx context.Context, out chan<- []byte) error {
	port := d.current()
	if port == nil {
		return ErrUnavailable
	}

	buf := make([]byte, readBufferSize)

	for {
		n, err := port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			select {
			case out <- chunk:
			case <-ctx.Done():
				return nil
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("read from %s: %w", d.name, err)
		}

		if n == 0 && ctx.Err() != nil {
			return nil
		}
	}
}
