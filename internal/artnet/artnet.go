// Package artnet broadcasts DMX frames as Art-Net packets and discovers
// nodes on the local network.
package artnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Port is the Art-Net UDP port.
const Port = 6454

// UniverseSize is the number of DMX channels in one Art-Net universe.
const UniverseSize = 512

// Sender manages the UDP socket and sequence number for broadcast sending.
type Sender struct {
	mu        sync.Mutex
	conn      *net.UDPConn
	broadcast *net.UDPAddr
	seq       uint8
	logger    *slog.Logger
}

// NewSender opens a UDP socket that broadcasts to subnet, or to
// 255.255.255.255 when subnet is empty or invalid.
func NewSender(subnet string, logger *slog.Logger) (*Sender, error) {
	ip := net.IPv4bcast
	if subnet != "" {
		if parsed := net.ParseIP(subnet); parsed != nil {
			ip = parsed
		} else {
			logger.Warn("invalid broadcast_subnet; using 255.255.255.255", "subnet", subnet)
		}
	}
	s, err := newSender(&net.UDPAddr{IP: ip, Port: Port}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("broadcasting Art-Net", "target", ip.String())
	return s, nil
}

func newSender(target *net.UDPAddr, logger *slog.Logger) (*Sender, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	if err := enableBroadcast(conn); err != nil {
		logger.Warn("unable to set SO_BROADCAST", "err", err)
	}
	return &Sender{conn: conn, broadcast: target, seq: 1, logger: logger}, nil
}

func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := raw.Control(func(fd uintptr) {
		serr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return serr
}

// WriteUniverse broadcasts one ArtDMX frame.
func (s *Sender) WriteUniverse(universe uint16, dmx []byte) error {
	if len(dmx) > UniverseSize {
		return errors.New("dmx length must be <= 512")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	packet := buildArtDMX(s.seq, universe, dmx)
	seq := s.seq
	// Sequence 0 disables reordering on receivers, so skip it.
	if s.seq++; s.seq == 0 {
		s.seq = 1
	}
	n, err := s.conn.WriteToUDP(packet, s.broadcast)
	if err != nil {
		return fmt.Errorf("ArtDMX send (seq=%d, target=%s, wrote=%d): %w", seq, s.broadcast, n, err)
	}
	s.logger.Log(context.Background(), slog.LevelDebug-4, "sent ArtDMX", "seq", seq, "universe", universe, "bytes", n)
	return nil
}

// SendArtSync broadcasts an ArtSync packet so all nodes apply buffered DMX
// data simultaneously.
func (s *Sender) SendArtSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn.WriteToUDP(buildArtSync(), s.broadcast); err != nil {
		return fmt.Errorf("ArtSync send (target=%s): %w", s.broadcast, err)
	}
	return nil
}

// Close releases the socket.
func (s *Sender) Close() error { return s.conn.Close() }

// buildArtDMX constructs an ArtDMX packet for the given universe and payload.
func buildArtDMX(seq uint8, universe uint16, dmxPayload []byte) []byte {
	subUni := byte(universe & 0xFF)
	netHi := byte((universe >> 8) & 0x7F)
	packet := make([]byte, 18+len(dmxPayload))
	copy(packet[0:], []byte("Art-Net\x00")) // ID
	packet[8], packet[9] = 0x00, 0x50       // OpCode ArtDMX
	packet[10], packet[11] = 0x00, 14       // Protocol version 14
	packet[12], packet[13] = seq, 0x00      // Sequence, physical port (unused)
	packet[14], packet[15] = subUni, netHi  // SubUni, Net
	dataLen := len(dmxPayload)
	packet[16], packet[17] = byte((dataLen>>8)&0xFF), byte(dataLen&0xFF)
	copy(packet[18:], dmxPayload)
	return packet
}

func buildArtSync() []byte {
	return []byte("Art-Net\x00\x00\x52\x00\x0e\x00\x00")
}

func buildArtPoll() []byte {
	pkt := make([]byte, 14)
	copy(pkt[0:], []byte("Art-Net\x00"))
	pkt[8], pkt[9] = 0x00, 0x20 // OpCode ArtPoll (0x2000)
	pkt[10], pkt[11] = 0x00, 14 // ProtVerHi, ProtVerLo
	pkt[12] = 0x06              // TalkToMe flags
	pkt[13] = 0x00              // Priority
	return pkt
}

// Node is a device that answered an ArtPoll.
type Node struct {
	Name string
	IP   net.IP
}

// parsePollReply extracts the short name of an ArtPollReply.
func parsePollReply(buf []byte) (string, bool) {
	if len(buf) < 44 || string(buf[0:7]) != "Art-Net" || buf[8] != 0x00 || buf[9] != 0x21 {
		return "", false
	}
	name := buf[26:44]
	for i, b := range name {
		if b == 0 {
			name = name[:i]
			break
		}
	}
	return string(name), true
}

// broadcastFor picks a broadcast address from interface networks,
// preferring 192.168.* addresses and falling back to 255.255.255.255.
func broadcastFor(nets []*net.IPNet) net.IP {
	var first net.IP
	for _, ipnet := range nets {
		if ipnet == nil || ipnet.IP.To4() == nil || len(ipnet.Mask) != 4 {
			continue
		}
		ip := ipnet.IP.To4()
		bcast := make(net.IP, 4)
		for i := 0; i < 4; i++ {
			bcast[i] = ip[i] | ^ipnet.Mask[i]
		}
		if strings.HasPrefix(ip.String(), "192.168.") {
			return bcast
		}
		if first == nil {
			first = bcast
		}
	}
	if first != nil {
		return first
	}
	return net.IPv4bcast
}

// interfaceNets lists the IPv4 networks of every up, non-loopback interface.
func interfaceNets() []*net.IPNet {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var nets []*net.IPNet
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			switch v := addr.(type) {
			case *net.IPNet:
				nets = append(nets, v)
			case *net.IPAddr:
				nets = append(nets, &net.IPNet{IP: v.IP, Mask: v.IP.DefaultMask()})
			}
		}
	}
	return nets
}

// Poll broadcasts an ArtPoll and collects ArtPollReply packets until wait
// elapses.
func Poll(wait time.Duration, logger *slog.Logger) ([]Node, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: Port})
	if err != nil {
		return nil, fmt.Errorf("open UDP socket on port %d: %w", Port, err)
	}
	defer conn.Close()
	if err := enableBroadcast(conn); err != nil {
		logger.Warn("unable to set SO_BROADCAST", "err", err)
	}

	bcastIP := broadcastFor(interfaceNets())
	logger.Info("broadcasting ArtPoll", "target", bcastIP.String())
	if _, err := conn.WriteToUDP(buildArtPoll(), &net.UDPAddr{IP: bcastIP, Port: Port}); err != nil {
		return nil, fmt.Errorf("send ArtPoll: %w", err)
	}
	return collectReplies(conn, wait), nil
}

func collectReplies(conn *net.UDPConn, wait time.Duration) []Node {
	conn.SetReadDeadline(time.Now().Add(wait))
	var nodes []Node
	buf := make([]byte, 512)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return nodes
		}
		if name, ok := parsePollReply(buf[:n]); ok {
			nodes = append(nodes, Node{Name: name, IP: addr.IP})
		}
	}
}
