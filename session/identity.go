// Package session implements the per-client identity, server-settings
// cache, and the session driver that speaks the SRS radio-server
// protocol: a TCP control channel plus a UDP voice channel, driven by a
// single cooperative event loop per session.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/robgrahamau/datis-go/srsproto"
)

const sguidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateSGUID returns a 22-character session id drawn uniformly from
// [A-Za-z0-9]. Random UUIDs supply the entropy. Bytes 6 and 8 of a UUID
// carry fixed version and variant bits, so they are skipped, and bytes of
// 248 (4*62) or more are rejected so the modulo-62 fold is unbiased.
func generateSGUID() string {
	out := make([]byte, 0, 22)
	for len(out) < cap(out) {
		u := uuid.New()
		for i, v := range u {
			if i == 6 || i == 8 || v >= 248 {
				continue
			}
			out = append(out, sguidAlphabet[v%62])
			if len(out) == cap(out) {
				break
			}
		}
	}
	return string(out)
}

// Position is a geographic snapshot. Reads and writes always replace the
// whole value, so a Position handed out by Identity.Position is never a
// torn read.
type Position struct {
	Lat float64
	Lon float64
	Alt float64
}

// Unit optionally binds a session to an in-simulation unit.
type Unit struct {
	ID   uint32
	Name string
}

// Identity is the stable per-client identity: a 22-byte session id, a
// display name, the tuned frequency and modulation, an optional unit
// binding, and a shared, concurrently-readable position. The sguid and
// name/freq/modulation are immutable for the session's lifetime; unit and
// position are mutable and safe for concurrent access, since the host
// simulator may push updates on its own goroutine while the driver reads
// them on its event loop.
type Identity struct {
	sguid      string
	name       string
	freq       uint64
	modulation srsproto.Modulation

	mu       sync.RWMutex
	unit     *Unit
	position Position
}

// NewIdentity constructs an Identity with a freshly generated sguid.
func NewIdentity(name string, freq uint64, modulation srsproto.Modulation) *Identity {
	return &Identity{
		sguid:      generateSGUID(),
		name:       name,
		freq:       freq,
		modulation: modulation,
	}
}

// SGUID returns the session's 22-byte identifier.
func (id *Identity) SGUID() string { return id.sguid }

// WireSGUID returns the sguid as the fixed-size array the wire codecs use.
func (id *Identity) WireSGUID() srsproto.SGUID {
	var out srsproto.SGUID
	copy(out[:], id.sguid)
	return out
}

// Name returns the display name shown on the server roster.
func (id *Identity) Name() string { return id.name }

// Freq returns the tuned frequency in hertz.
func (id *Identity) Freq() uint64 { return id.freq }

// Modulation returns the tuned modulation.
func (id *Identity) Modulation() srsproto.Modulation { return id.modulation }

// Unit returns the bound unit and whether one is set.
func (id *Identity) Unit() (Unit, bool) {
	id.mu.RLock()
	defer id.mu.RUnlock()
	if id.unit == nil {
		return Unit{}, false
	}
	return *id.unit, true
}

// SetUnit binds the session to an in-sim unit.
func (id *Identity) SetUnit(unitID uint32, name string) {
	id.mu.Lock()
	id.unit = &Unit{ID: unitID, Name: name}
	id.mu.Unlock()
}

// Position returns an atomic snapshot of the session's current position.
func (id *Identity) Position() Position {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.position
}

// SetPosition replaces the session's position wholesale, so concurrent
// readers of Position never observe a mix of old and new fields.
func (id *Identity) SetPosition(p Position) {
	id.mu.Lock()
	id.position = p
	id.mu.Unlock()
}
