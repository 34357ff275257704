// ABOUTME: Malgo-based audio output implementation with device selection
// ABOUTME: Uses miniaudio via malgo; a feeder goroutine fills a ring the callback drains
package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// malgoBufferMs is the ring capacity between feeder and device callback
const malgoBufferMs = 200

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	deviceName string
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate int
	channels   int
	ready      bool

	ringBuffer *RingBuffer
	scratch    []float32
	mu         sync.Mutex
}

// NewMalgo creates a new Malgo output. An empty deviceName selects the system default;
// otherwise the first playback device whose name contains deviceName is used.
func NewMalgo(deviceName string) *Malgo {
	return &Malgo{deviceName: deviceName}
}

// Devices lists playback device names
func Devices() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// Open initializes the output device with specified format
func (m *Malgo) Open(sampleRate, channels int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if m.sampleRate == sampleRate && m.channels == channels {
			return nil
		}
		m.closeDevice()
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	m.sampleRate = sampleRate
	m.channels = channels

	// Configure device
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	label := "default"
	if m.deviceName != "" {
		info, err := m.findDevice(m.deviceName)
		if err != nil {
			return err
		}
		deviceConfig.Playback.DeviceID = info.ID.Pointer()
		label = info.Name()
	}

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device %q: %w", label, err)
	}

	m.device = device
	m.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels, f32 (malgo/%s)", sampleRate, channels, label)

	return nil
}

func (m *Malgo) findDevice(name string) (malgo.DeviceInfo, error) {
	infos, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(name)) {
			return info, nil
		}
	}
	return malgo.DeviceInfo{}, fmt.Errorf("no playback device matching %q", name)
}

// Play feeds src into the ring until it ends, then waits for the device to drain
func (m *Malgo) Play(src Source) error {
	if !m.ready {
		return fmt.Errorf("output not initialized")
	}

	m.ringBuffer = NewRingBuffer(m.sampleRate * m.channels * malgoBufferMs / 1000)

	// Prime the ring before starting so the first callback has audio
	chunk := make([]float32, m.channels*512)
	ended, err := m.feed(src, chunk, m.ringBuffer.size/2)
	if err != nil {
		return err
	}

	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	defer func() {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
	}()

	if !ended {
		if _, err := m.feed(src, chunk, -1); err != nil {
			return err
		}
	}

	// Drain what is queued; short reads from here on are the tail, not underruns
	m.ringBuffer.Close()
	for m.ringBuffer.Available() > 0 {
		time.Sleep(5 * time.Millisecond)
	}

	if n := m.ringBuffer.Underruns(); n > 0 {
		log.Printf("Warning: %d device underruns during playback", n)
	}
	return nil
}

// feed moves samples from src to the ring until EOF or, when limit >= 0, limit samples.
// It reports whether the source ended.
func (m *Malgo) feed(src Source, chunk []float32, limit int) (bool, error) {
	moved := 0
	for limit < 0 || moved < limit {
		n, err := src.ReadSamples(chunk)
		if n > 0 {
			if !m.ringBuffer.Write(chunk[:n]) {
				return true, nil
			}
			moved += n
		}
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return true, fmt.Errorf("source read failed: %w", err)
		}
	}
	return false, nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	totalSamples := int(frameCount) * m.channels
	if cap(m.scratch) < totalSamples {
		m.scratch = make([]float32, totalSamples)
	}
	samples := m.scratch[:totalSamples]

	m.ringBuffer.Read(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(pOutput[i*4:], math.Float32bits(s))
	}
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.ringBuffer != nil {
		m.ringBuffer.Close()
	}
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
		m.ready = false
	}
}
