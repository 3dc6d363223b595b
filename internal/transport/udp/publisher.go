// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	applog "spectra/internal/log"
	"spectra/internal/transport"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Per datagram, from 1    |
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Channel           | uint16         | 2            | Source channel index    |
| Offset            | uint32         | 4            | Bin index of Mags[0]    |
| Magnitude Count   | uint32         | 4            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Magnitude per bin       |
+-----------------------------------------------------------------------------+

A frame larger than MaxMagnitudesPerPacket bins is split into consecutive
datagrams sharing a timestamp, with increasing offsets.
*/

const (
	// HeaderSize is the fixed part of a packet in bytes.
	HeaderSize = 4 + 8 + 2 + 4 + 4

	// MaxMagnitudesPerPacket keeps datagrams well below the 64 KiB limit.
	MaxMagnitudesPerPacket = 8192
)

// ErrShortPacket is returned by DecodePacket for truncated datagrams.
var ErrShortPacket = errors.New("short packet")

// Packet is the decoded form of one datagram.
type Packet struct {
	Seq        uint32
	Timestamp  int64
	Channel    uint16
	Offset     uint32
	Magnitudes []float32
}

type packetHeader struct {
	Seq       uint32
	Timestamp int64
	Channel   uint16
	Offset    uint32
	Count     uint32
}

// EncodePacket appends the wire form of pkt to buf.
func EncodePacket(buf *bytes.Buffer, pkt Packet) error {
	hdr := packetHeader{
		Seq:       pkt.Seq,
		Timestamp: pkt.Timestamp,
		Channel:   pkt.Channel,
		Offset:    pkt.Offset,
		Count:     uint32(len(pkt.Magnitudes)),
	}
	if err := binary.Write(buf, binary.BigEndian, hdr); err != nil {
		return err
	}
	return binary.Write(buf, binary.BigEndian, pkt.Magnitudes)
}

// DecodePacket parses one datagram.
func DecodePacket(b []byte) (Packet, error) {
	var hdr packetHeader
	r := bytes.NewReader(b)
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	if uint64(r.Len()) != uint64(hdr.Count)*4 {
		return Packet{}, fmt.Errorf("%w: header declares %d magnitudes, payload holds %d bytes",
			ErrShortPacket, hdr.Count, r.Len())
	}

	mags := make([]float32, hdr.Count)
	if err := binary.Read(r, binary.BigEndian, mags); err != nil {
		return Packet{}, err
	}
	return Packet{
		Seq:        hdr.Seq,
		Timestamp:  hdr.Timestamp,
		Channel:    hdr.Channel,
		Offset:     hdr.Offset,
		Magnitudes: mags,
	}, nil
}

// UDPPublisher is a transport.Transport that packs Frames into the binary
// format above and sends them with a UDPSender. Frames are paced by a token
// bucket; datagrams of one frame go out back to back.
type UDPPublisher struct {
	sender  *UDPSender
	limiter *rate.Limiter

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu          sync.Mutex // Serializes packing; protects the fields below.
	sequenceNum uint32
	f32Buffer   []float32
	packet      *bytes.Buffer
}

// NewUDPPublisher wraps sender. sendRate is in frames per second.
func NewUDPPublisher(sender *UDPSender, sendRate float64) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if sendRate <= 0 {
		return nil, fmt.Errorf("UDPPublisher: send rate must be positive, got %v", sendRate)
	}

	applog.Infof("UDPPublisher: Publishing to %s at up to %.1f frames/s", sender.Target(), sendRate)

	ctx, cancel := context.WithCancel(context.Background())
	return &UDPPublisher{
		sender:    sender,
		limiter:   rate.NewLimiter(rate.Limit(sendRate), 1),
		ctx:       ctx,
		cancel:    cancel,
		f32Buffer: make([]float32, 0, MaxMagnitudesPerPacket),
		packet:    bytes.NewBuffer(make([]byte, 0, HeaderSize+4*MaxMagnitudesPerPacket)),
	}, nil
}

// Send publishes a transport.Frame (value or pointer). Other payloads are
// rejected with transport.ErrUnsupportedPayload.
func (p *UDPPublisher) Send(data any) error {
	f, ok := transport.AsFrame(data)
	if !ok {
		return fmt.Errorf("UDPPublisher: %w %T", transport.ErrUnsupportedPayload, data)
	}
	if f.Channel < 0 || f.Channel > 0xFFFF {
		return fmt.Errorf("UDPPublisher: channel %d does not fit the packet", f.Channel)
	}
	if err := p.limiter.Wait(p.ctx); err != nil {
		return transport.ErrClosed
	}

	ts := f.Timestamp
	if ts == 0 {
		ts = time.Now().UnixNano()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	mags := f.Magnitudes
	offset := 0
	for {
		end := min(offset+MaxMagnitudesPerPacket, len(mags))

		p.f32Buffer = p.f32Buffer[:0]
		for _, v := range mags[offset:end] {
			p.f32Buffer = append(p.f32Buffer, float32(v))
		}

		p.sequenceNum++
		p.packet.Reset()
		err := EncodePacket(p.packet, Packet{
			Seq:        p.sequenceNum,
			Timestamp:  ts,
			Channel:    uint16(f.Channel),
			Offset:     uint32(offset),
			Magnitudes: p.f32Buffer,
		})
		if err != nil {
			return fmt.Errorf("UDPPublisher: packing frame %d: %w", f.Seq, err)
		}
		if err := p.sender.Send(p.packet.Bytes()); err != nil {
			return err
		}
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packet.Len())

		offset = end
		if offset >= len(mags) {
			return nil
		}
	}
}

// Close stops accepting frames and closes the sender.
func (p *UDPPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		applog.Debugf("UDPPublisher: Close called")
		p.cancel()
		err = p.sender.Close()
	})
	return err
}

var _ transport.Transport = (*UDPPublisher)(nil)
