package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/robgrahamau/datis-go/session"
	"github.com/robgrahamau/datis-go/srsproto"
)

func TestNewIdentitySGUIDLength(t *testing.T) {
	id := session.NewIdentity("Kutaisi ATIS", 251_000_000, srsproto.ModulationAM)
	assert.Len(t, id.SGUID(), 22)
}

func TestNewIdentitySGUIDCharset(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := session.NewIdentity("x", 1, srsproto.ModulationAM)
		for _, r := range id.SGUID() {
			assert.True(t, (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'),
				"unexpected rune %q in sguid", r)
		}
	})
}

func TestSGUIDStableAcrossReads(t *testing.T) {
	id := session.NewIdentity("x", 1, srsproto.ModulationAM)
	first := id.SGUID()
	id.SetPosition(session.Position{Lat: 1, Lon: 2, Alt: 3})
	id.SetUnit(42, "Tanker-1")
	assert.Equal(t, first, id.SGUID())
	assert.Equal(t, first, id.SGUID())
}

func TestPositionSnapshotNotTorn(t *testing.T) {
	id := session.NewIdentity("x", 1, srsproto.ModulationAM)
	const writers = 8
	const iterations = 500

	var wg sync.WaitGroup
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				v := float64(w*iterations + i)
				id.SetPosition(session.Position{Lat: v, Lon: v, Alt: v})
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			return
		default:
			p := id.Position()
			assert.Equal(t, p.Lat, p.Lon, "position fields must never be torn")
			assert.Equal(t, p.Lat, p.Alt, "position fields must never be torn")
		}
	}
}

func TestUnitBinding(t *testing.T) {
	id := session.NewIdentity("x", 1, srsproto.ModulationAM)
	_, ok := id.Unit()
	assert.False(t, ok)

	id.SetUnit(7, "Viper-1")
	u, ok := id.Unit()
	assert.True(t, ok)
	assert.Equal(t, uint32(7), u.ID)
	assert.Equal(t, "Viper-1", u.Name)
}
