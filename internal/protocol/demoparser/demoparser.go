// Package demoparser implements a minimal streaming reader over a live
// demo broadcast body. The full Source 2 demo grammar is out of scope;
// this models only the entity-delta framing callers need for the
// live-match event feed: a sequence of length-prefixed protobuf frames,
// each carrying a tick number and a set of entity deltas.
package demoparser

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// DeltaKind classifies a single entity delta within a tick.
type DeltaKind int

const (
	DeltaCreated DeltaKind = iota
	DeltaUpdated
	DeltaDeleted
)

// EntityDelta is one entity's change within a tick.
type EntityDelta struct {
	EntityType string
	EntityID   uint64
	Kind       DeltaKind
}

// TickEvent is a single decoded frame: a tick number and every entity
// delta observed in that tick.
type TickEvent struct {
	Tick   uint32
	Deltas []EntityDelta
}

// frame wire shape: field 1 = tick (varint), field 2 = repeated delta
// messages (each: field 1 = entity_type string, field 2 = entity_id
// varint, field 3 = kind varint).
func parseFrame(data []byte) (TickEvent, error) {
	var ev TickEvent
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ev, fmt.Errorf("demoparser: consuming tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ev, fmt.Errorf("demoparser: consuming tick: %w", protowire.ParseError(n))
			}
			ev.Tick = uint32(v)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			inner, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return ev, fmt.Errorf("demoparser: consuming delta: %w", protowire.ParseError(n))
			}
			delta, err := parseDelta(inner)
			if err != nil {
				return ev, err
			}
			ev.Deltas = append(ev.Deltas, delta)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return ev, fmt.Errorf("demoparser: skipping field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return ev, nil
}

func parseDelta(data []byte) (EntityDelta, error) {
	var d EntityDelta
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return d, fmt.Errorf("demoparser: consuming delta tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return d, fmt.Errorf("demoparser: consuming entity_type: %w", protowire.ParseError(n))
			}
			d.EntityType = s
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return d, fmt.Errorf("demoparser: consuming entity_id: %w", protowire.ParseError(n))
			}
			d.EntityID = v
			data = data[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return d, fmt.Errorf("demoparser: consuming kind: %w", protowire.ParseError(n))
			}
			d.Kind = DeltaKind(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return d, fmt.Errorf("demoparser: skipping delta field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return d, nil
}

// Stream reads length-prefixed frames from r and sends decoded
// TickEvents on the returned channel until r is exhausted, ctx is
// canceled, or a frame fails to parse (in which case err receives the
// failure and the channel is closed). The channel has capacity 1024 to
// match the SSE writer's back-pressure budget.
func Stream(ctx context.Context, r io.Reader) (<-chan TickEvent, <-chan error) {
	events := make(chan TickEvent, 1024)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errc)

		br := bufio.NewReaderSize(r, 64*1024)
		for {
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}

			length, err := readVarint(br)
			if err != nil {
				if err != io.EOF {
					errc <- fmt.Errorf("demoparser: reading frame length: %w", err)
				}
				return
			}

			buf := make([]byte, length)
			if _, err := io.ReadFull(br, buf); err != nil {
				errc <- fmt.Errorf("demoparser: reading frame body: %w", err)
				return
			}

			ev, err := parseFrame(buf)
			if err != nil {
				errc <- err
				return
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return events, errc
}

// readVarint reads a single protobuf-style varint byte-by-byte, since
// protowire operates on in-memory buffers rather than io.Reader.
func readVarint(br *bufio.Reader) (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("demoparser: varint too long")
		}
	}
}
