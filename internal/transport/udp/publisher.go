// SPDX-License-Identifier: MIT

// Package udp streams input level datagrams at a fixed rate so an
// external meter can track capture gain while the operator sets up.
package udp

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"roomsweep/internal/audio"
	applog "roomsweep/internal/log"
)

// LevelProvider is the slice of the audio layer the publisher reads.
// *audio.Bridge satisfies it.
type LevelProvider interface {
	Level() audio.LevelSnapshot
}

/*
Level datagram layout (little-endian), 32 bytes:

| Offset | Type    | Field                        |
|--------|---------|------------------------------|
| 0      | uint32  | Sequence number              |
| 4      | int64   | Timestamp, ns since epoch    |
| 12     | float32 | RMS, linear full scale       |
| 16     | float32 | RMS, dBFS                    |
| 20     | float32 | Peak, linear full scale      |
| 24     | float32 | Peak, dBFS                   |
| 28     | uint32  | Clipped samples (saturating) |
*/
const (
	packetSize = 32

	offSequence  = 0
	offTimestamp = 4
	offRMS       = 12
	offRMSDB     = 16
	offPeak      = 20
	offPeakDB    = 24
	offClipped   = 28
)

// Publisher periodically snapshots the bridge meter, packs it into the
// binary level datagram and ships it through a Sender. It reads the
// meter snapshot only, never the sample stream.
type Publisher struct {
	sender   *Sender
	source   LevelProvider
	interval time.Duration

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequence uint32
	packet   []byte
}

// NewPublisher wires a publisher to a sender and a level source. An
// interval of zero or less falls back to 150ms.
func NewPublisher(interval time.Duration, sender *Sender, source LevelProvider) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp: publisher needs a sender")
	}
	if source == nil {
		return nil, fmt.Errorf("udp: publisher needs a level source")
	}
	if interval <= 0 {
		interval = 150 * time.Millisecond
		applog.Warnf("udp: invalid publish interval, defaulting to %s", interval)
	}

	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
		packet:   make([]byte, packetSize),
	}, nil
}

// Start launches the publishing loop. Calling Start while already
// running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("udp: publisher already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	done := p.done
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("udp: publisher running every %s", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the publishing loop and waits for it to exit. Safe to call
// repeatedly; a stopped publisher may be started again.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.done)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// publish packs the current meter snapshot and ships it.
func (p *Publisher) publish() {
	data := p.encode(p.source.Level(), time.Now().UnixNano())
	if err := p.sender.Send(data); err != nil {
		applog.Debugf("udp: %v", err)
		return
	}
	applog.Debugf("udp: sent level packet %d", p.sequence)
}

// encode packs one snapshot into the reusable packet buffer.
func (p *Publisher) encode(snap audio.LevelSnapshot, ts int64) []byte {
	p.sequence++

	binary.LittleEndian.PutUint32(p.packet[offSequence:], p.sequence)
	binary.LittleEndian.PutUint64(p.packet[offTimestamp:], uint64(ts))
	binary.LittleEndian.PutUint32(p.packet[offRMS:], math.Float32bits(float32(snap.RMS)))
	binary.LittleEndian.PutUint32(p.packet[offRMSDB:], math.Float32bits(float32(snap.RMSDB)))
	binary.LittleEndian.PutUint32(p.packet[offPeak:], math.Float32bits(float32(snap.Peak)))
	binary.LittleEndian.PutUint32(p.packet[offPeakDB:], math.Float32bits(float32(snap.PeakDB)))

	clipped := snap.Clipped
	if clipped > math.MaxUint32 {
		clipped = math.MaxUint32
	}
	binary.LittleEndian.PutUint32(p.packet[offClipped:], uint32(clipped))

	return p.packet
}

// Close implements io.Closer for teardown lists.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*Publisher)(nil)
