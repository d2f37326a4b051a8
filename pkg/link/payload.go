package link

import (
	"encoding/binary"
	"math/rand"
	"sync"
)

// SensorFrameSize is the length of one simulated sensor frame.
const SensorFrameSize = 9

// sensorFrameMarker opens every frame.
const sensorFrameMarker = 0xA5

// SimulatedSensor produces 9-byte readings standing in for a real sensor:
//
//	[0]    0xA5 marker
//	[1]    sequence (wraps at 256)
//	[2:4]  temperature, int16 big-endian, 0.01 °C
//	[4:6]  relative humidity, uint16 big-endian, 0.01 %RH
//	[6:8]  pressure, uint16 big-endian, 0.1 hPa above 800 hPa
//	[8]    XOR of bytes 0..7
type SimulatedSensor struct {
	mu  sync.Mutex
	rng *rand.Rand
	seq uint8

	temperature float64
	humidity    float64
	pressure    float64
}

func NewSimulatedSensor(seed int64) *SimulatedSensor {
	return &SimulatedSensor{
		rng:         rand.New(rand.NewSource(seed)),
		temperature: 21.5,
		humidity:    45,
		pressure:    1013.2,
	}
}

// NextPayload advances the random walk and encodes one frame.
func (s *SimulatedSensor) NextPayload() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.temperature = clamp(s.temperature+s.rng.NormFloat64()*0.1, -40, 85)
	s.humidity = clamp(s.humidity+s.rng.NormFloat64()*0.5, 0, 100)
	s.pressure = clamp(s.pressure+s.rng.NormFloat64()*0.2, 800, 1100)

	frame := make([]byte, SensorFrameSize)
	frame[0] = sensorFrameMarker
	frame[1] = s.seq
	binary.BigEndian.PutUint16(frame[2:4], uint16(int16(s.temperature*100)))
	binary.BigEndian.PutUint16(frame[4:6], uint16(s.humidity*100))
	binary.BigEndian.PutUint16(frame[6:8], uint16((s.pressure-800)*10))
	frame[8] = frameChecksum(frame[:8])
	s.seq++
	return frame
}

// SensorReading is a decoded frame.
type SensorReading struct {
	Sequence    uint8
	Temperature float64
	Humidity    float64
	Pressure    float64
}

// DecodeSensorFrame validates and decodes a frame produced by
// SimulatedSensor. ok is false for a short frame, a bad marker or a bad
// checksum.
func DecodeSensorFrame(frame []byte) (SensorReading, bool) {
	if len(frame) != SensorFrameSize || frame[0] != sensorFrameMarker {
		return SensorReading{}, false
	}
	if frameChecksum(frame[:8]) != frame[8] {
		return SensorReading{}, false
	}
	return SensorReading{
		Sequence:    frame[1],
		Temperature: float64(int16(binary.BigEndian.Uint16(frame[2:4]))) / 100,
		Humidity:    float64(binary.BigEndian.Uint16(frame[4:6])) / 100,
		Pressure:    float64(binary.BigEndian.Uint16(frame[6:8]))/10 + 800,
	}, true
}

func frameChecksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum ^= v
	}
	return sum
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
