// Package mockserver serves a simulated wifi client list for local
// development and demos.
package mockserver

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

const (
	minSignal = -95.0
	maxSignal = -25.0
	walkStep  = 3.0
)

// Field layouts rotate so every identity and signal fallback gets exercised.
const (
	layoutID = iota
	layoutMAC
	layoutMACAddress
	layoutNameOnly
	layoutCount
)

var hostnames = []string{
	"kitchen-ipad", "office-laptop", "living-room-tv", "garage-cam",
	"thermostat", "pixel-8", "work-macbook", "doorbell", "printer", "xbox",
}

type simClient struct {
	mac      string
	hostname string
	signal   float64
	layout   int
}

// Simulator random-walks client signals and adds or drops clients. It is safe
// for concurrent use.
type Simulator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	churn   float64
	clients []*simClient
	next    int
}

func NewSimulator(count int, churn float64, seed int64) *Simulator {
	s := &Simulator{
		rng:   rand.New(rand.NewSource(seed)),
		churn: churn,
	}
	for i := 0; i < count; i++ {
		s.clients = append(s.clients, s.spawn())
	}
	return s
}

func (s *Simulator) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Step advances the simulation by one request and returns the client list.
func (s *Simulator) Step() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clients) > 0 && s.rng.Float64() < s.churn {
		drop := s.rng.Intn(len(s.clients))
		s.clients = append(s.clients[:drop], s.clients[drop+1:]...)
	}
	if s.rng.Float64() < s.churn {
		s.clients = append(s.clients, s.spawn())
	}

	out := make([]map[string]any, 0, len(s.clients))
	for _, c := range s.clients {
		c.signal = math.Max(minSignal, math.Min(maxSignal, c.signal+s.rng.NormFloat64()*walkStep))
		out = append(out, c.fields(math.Round(c.signal)))
	}
	return out
}

func (s *Simulator) spawn() *simClient {
	idx := s.next
	s.next++
	return &simClient{
		mac:      fmt.Sprintf("02:00:00:%02x:%02x:%02x", (idx>>16)&0xff, (idx>>8)&0xff, idx&0xff),
		hostname: fmt.Sprintf("%s-%d", hostnames[idx%len(hostnames)], idx),
		signal:   -70 + s.rng.Float64()*30,
		layout:   idx % layoutCount,
	}
}

func (c *simClient) fields(signal float64) map[string]any {
	switch c.layout {
	case layoutMAC:
		return map[string]any{"mac": c.mac, "hostname": c.hostname, "rssi": fmt.Sprintf("%.0f", signal)}
	case layoutMACAddress:
		return map[string]any{"macAddress": c.mac, "device": c.hostname, "signalDbm": []any{signal}}
	case layoutNameOnly:
		return map[string]any{"name": c.hostname, "signal": nil}
	default:
		return map[string]any{"id": c.mac, "name": c.hostname, "signal": signal}
	}
}
