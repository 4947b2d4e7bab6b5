package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/petems/camtray/internal/media"
)

// PortAudio owns the PortAudio library lifetime.
type PortAudio struct{}

// New initializes PortAudio
func New() (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudio{}, nil
}

// ListDevices returns every input and output device.
func (p *PortAudio) ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultIn, _ := portaudio.DefaultInputDevice()
	defaultOut, _ := portaudio.DefaultOutputDevice()

	result := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels == 0 && d.MaxOutputChannels == 0 {
			continue
		}
		result = append(result, Device{
			ID:      d.Name,
			Name:    d.Name,
			Input:   d.MaxInputChannels > 0,
			Output:  d.MaxOutputChannels > 0,
			Default: d == defaultIn || d == defaultOut,
		})
	}

	return result, nil
}

// OpenTrack starts capturing mono float32 audio from deviceID, or from the
// default input when deviceID is empty.
func (p *PortAudio) OpenTrack(deviceID string, sampleRate, framesPerBuffer int) (*Track, error) {
	device, err := findInput(deviceID)
	if err != nil {
		return nil, err
	}

	// Open stream: mono, specified sample rate, float32
	buffer := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: len(buffer),
	}, buffer)
	if err != nil {
		return nil, media.DeviceError(fmt.Errorf("failed to open audio stream: %w", err))
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, media.DeviceError(fmt.Errorf("failed to start audio stream: %w", err))
	}

	t := &Track{
		label:      device.Name,
		sampleRate: sampleRate,
		stream:     stream,
		bus:        newBroadcaster(),
		done:       make(chan struct{}),
	}
	go t.readLoop(buffer)

	return t, nil
}

func findInput(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, media.DeviceError(fmt.Errorf("failed to get default input device: %w", err))
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, media.DeviceError(fmt.Errorf("device not found: %s", deviceID))
}

// Close terminates PortAudio. Tracks must be closed first.
func (p *PortAudio) Close() error {
	return portaudio.Terminate()
}

// Track is a live microphone source.
type Track struct {
	label      string
	sampleRate int
	stream     *portaudio.Stream
	bus        *broadcaster

	closeOnce sync.Once
	done      chan struct{}
}

func (t *Track) ID() string       { return t.label }
func (t *Track) Kind() media.Kind { return media.AudioInput }
func (t *Track) Label() string    { return t.label }
func (t *Track) SampleRate() int  { return t.sampleRate }

func (t *Track) Subscribe(buffer int) (<-chan []float32, func()) {
	return t.bus.subscribe(buffer)
}

func (t *Track) readLoop(buffer []float32) {
	defer close(t.done)
	defer t.bus.close()

	for {
		if err := t.stream.Read(); err != nil {
			return
		}
		// Copy buffer and send
		samples := make([]float32, len(buffer))
		copy(samples, buffer)
		t.bus.publish(samples)
	}
}

// Close stops the capture and ends every subscription.
func (t *Track) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.stream.Stop()
		<-t.done
		t.stream.Close()
	})
	return err
}
