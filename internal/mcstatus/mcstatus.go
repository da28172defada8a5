// Package mcstatus probes the game server with a server-list ping on a
// fixed cadence and publishes the result to the dashboard. The probe is the
// public status handshake only; it never logs a bot in.
package mcstatus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/fakesalmon/minefleet/internal/config"
	"github.com/fakesalmon/minefleet/internal/event"
)

const (
	dialTimeout = 3 * time.Second
	maxResponse = 1 << 20
	statusState = 1
	handshakeID = 0x00
	statusReqID = 0x00
)

type PlayerSample struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	HeadURL string `json:"headUrl,omitempty"`
}

type Players struct {
	Online int            `json:"online"`
	Max    int            `json:"max"`
	Sample []PlayerSample `json:"sample,omitempty"`
}

// Status is one probe result, also served on GET /api/server.
type Status struct {
	Online  bool    `json:"online"`
	Host    string  `json:"host"`
	Port    int     `json:"port"`
	MOTD    string  `json:"motd,omitempty"`
	Version string  `json:"version,omitempty"`
	Players Players `json:"players"`
	Favicon string  `json:"favicon,omitempty"`
	// Uptime is seconds since the server was first seen online, reset
	// whenever a probe finds it down.
	Uptime int64 `json:"uptime"`
}

// Sink receives every probe result.
type Sink interface {
	ServerStatus(Status)
}

// Poller runs the probe loop.
type Poller struct {
	logger   *slog.Logger
	host     string
	port     int
	interval time.Duration
	sink     Sink

	mu          sync.Mutex
	stop        chan struct{}
	running     bool
	onlineSince time.Time
	wasOnline   bool
}

func NewPoller(logger *slog.Logger, host string, port int, interval time.Duration, sink Sink) *Poller {
	return &Poller{
		logger:   logger,
		host:     host,
		port:     port,
		interval: interval,
		sink:     sink,
	}
}

func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	go p.loop(p.stop)
}

func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.stop)
}

func (p *Poller) loop(stop <-chan struct{}) {
	p.probeAndPublish()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.probeAndPublish()
		}
	}
}

func (p *Poller) probeAndPublish() {
	st, err := Probe(p.host, p.port)
	if err != nil {
		p.logger.Debug("server probe failed", slog.Any("error", err))
		st = Status{Online: false, Host: p.host, Port: p.port}
	}

	p.mu.Lock()
	if st.Online {
		if !p.wasOnline {
			p.onlineSince = time.Now()
		}
		st.Uptime = int64(time.Since(p.onlineSince).Seconds())
	} else {
		p.onlineSince = time.Time{}
	}
	flipped := st.Online != p.wasOnline
	p.wasOnline = st.Online
	p.mu.Unlock()

	if flipped {
		msg := "Game server is offline"
		if st.Online {
			msg = "Game server is online"
		}
		event.Send(event.ServerStatus(event.Text("", msg), st.Online))
	}
	p.sink.ServerStatus(st)
}

// Probe performs one server-list ping against host:port.
func Probe(host string, port int) (Status, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), dialTimeout)
	if err != nil {
		return Status{}, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(dialTimeout))

	if err := writePacket(conn, handshakePacket(host, port)); err != nil {
		return Status{}, fmt.Errorf("handshake: %w", err)
	}
	if err := writePacket(conn, []byte{statusReqID}); err != nil {
		return Status{}, fmt.Errorf("status request: %w", err)
	}

	raw, err := readStatusResponse(conn)
	if err != nil {
		return Status{}, err
	}
	return parseStatus(host, port, raw)
}

// handshakePacket builds the state-switch packet: protocol -1 (unpinned),
// target address, next state 1 (status).
func handshakePacket(host string, port int) []byte {
	var buf bytes.Buffer
	buf.WriteByte(handshakeID)
	writeVarInt(&buf, -1)
	writeVarInt(&buf, int32(len(host)))
	buf.WriteString(host)
	buf.WriteByte(byte(port >> 8))
	buf.WriteByte(byte(port))
	writeVarInt(&buf, statusState)
	return buf.Bytes()
}

func writePacket(w io.Writer, payload []byte) error {
	var buf bytes.Buffer
	writeVarInt(&buf, int32(len(payload)))
	buf.Write(payload)
	_, err := w.Write(buf.Bytes())
	return err
}

func readStatusResponse(r io.Reader) ([]byte, error) {
	br := newByteReader(r)
	length, err := readVarInt(br)
	if err != nil {
		return nil, fmt.Errorf("frame length: %w", err)
	}
	if length <= 0 || length > maxResponse {
		return nil, fmt.Errorf("bad frame length %d", length)
	}
	packetID, err := readVarInt(br)
	if err != nil {
		return nil, fmt.Errorf("packet id: %w", err)
	}
	if packetID != 0 {
		return nil, fmt.Errorf("unexpected packet id %d", packetID)
	}
	strLen, err := readVarInt(br)
	if err != nil {
		return nil, fmt.Errorf("payload length: %w", err)
	}
	if strLen <= 0 || strLen > maxResponse {
		return nil, fmt.Errorf("bad payload length %d", strLen)
	}
	raw := make([]byte, strLen)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return raw, nil
}

// statusJSON is the server-list ping response shape. The description is
// either a plain string or a chat component tree.
type statusJSON struct {
	Version struct {
		Name string `json:"name"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
		Sample []struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"sample"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
	Favicon     string          `json:"favicon"`
}

func parseStatus(host string, port int, raw []byte) (Status, error) {
	var sj statusJSON
	if err := json.Unmarshal(raw, &sj); err != nil {
		return Status{}, fmt.Errorf("status json: %w", err)
	}

	st := Status{
		Online:  true,
		Host:    host,
		Port:    port,
		MOTD:    flattenDescription(sj.Description),
		Version: sj.Version.Name,
		Favicon: sj.Favicon,
		Players: Players{
			Online: sj.Players.Online,
			Max:    sj.Players.Max,
		},
	}
	for _, s := range sj.Players.Sample {
		st.Players.Sample = append(st.Players.Sample, PlayerSample{
			Name:    s.Name,
			ID:      s.ID,
			HeadURL: headURL(s.Name),
		})
	}
	return st, nil
}

func headURL(name string) string {
	base := "https://minotar.net/helm"
	if cfg := config.Fleet; cfg != nil {
		base = cfg.Dashboard.HeadBase
	}
	return base + "/" + name
}

// flattenDescription joins a chat component description to plain text.
func flattenDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	var comp struct {
		Text  string `json:"text"`
		Extra []struct {
			Text string `json:"text"`
		} `json:"extra"`
	}
	if err := json.Unmarshal(raw, &comp); err != nil {
		return ""
	}
	out := comp.Text
	for _, e := range comp.Extra {
		out += e.Text
	}
	return out
}
