package session

import "github.com/robgrahamau/datis-go/srsproto"

// defaultRadioSlots is the number of radio slots announced in a
// RADIO_UPDATE message. The server expects exactly ten, most of them
// zero-valued/disabled.
const defaultRadioSlots = 10

// GameMessage is the inbound-from-simulator shape the driver relays as a
// RADIO_UPDATE when a session acts as an in-sim transmitter rather than a
// stationary station.
type GameMessage struct {
	Name     string
	Unit     string
	UnitID   uint32
	PTT      bool
	Selected uint8
	Radios   []srsproto.Radio
	Position Position
}

func positionToWire(p Position) *srsproto.LatLngPosition {
	return &srsproto.LatLngPosition{Lat: p.Lat, Lng: p.Lon, Alt: p.Alt}
}

// unitNameOrFallback returns the bound unit's name, falling back to the
// session's display name when no unit is bound.
func unitNameOrFallback(id *Identity) string {
	if u, ok := id.Unit(); ok {
		return u.Name
	}
	return id.Name()
}

func unitIDOrZero(id *Identity) uint32 {
	if u, ok := id.Unit(); ok {
		return u.ID
	}
	return 0
}

// syncMessage builds the handshake SYNC message: sending it causes the
// server to reply with its current ServerSettings and version.
func syncMessage(id *Identity) srsproto.ControlMessage {
	return srsproto.ControlMessage{
		Client: &srsproto.ClientInfo{
			ClientGUID: id.SGUID(),
			Name:       id.Name(),
			Coalition:  srsproto.CoalitionBlue,
			Position:   positionToWire(id.Position()),
		},
		MsgType: srsproto.MsgTypeSync,
		Version: srsproto.ProtocolVersion,
	}
}

// radioUpdateMessage builds the full radio-info RADIO_UPDATE sent once at
// startup: ten default radio slots, Hotas control, channel 0 selected,
// simultaneous transmission enabled.
func radioUpdateMessage(id *Identity) srsproto.ControlMessage {
	return srsproto.ControlMessage{
		Client: &srsproto.ClientInfo{
			ClientGUID: id.SGUID(),
			Name:       id.Name(),
			Coalition:  srsproto.CoalitionBlue,
			RadioInfo: &srsproto.RadioInfo{
				Name:                     id.Name() + " Radios",
				PTT:                      false,
				Radios:                   make([]srsproto.Radio, defaultRadioSlots),
				Control:                  srsproto.RadioControlHotas,
				Selected:                 0,
				Unit:                     unitNameOrFallback(id),
				UnitID:                   unitIDOrZero(id),
				SimultaneousTransmission: true,
			},
			Position: positionToWire(id.Position()),
		},
		MsgType: srsproto.MsgTypeRadioUpdate,
		Version: srsproto.ProtocolVersion,
	}
}

// updateMessage builds a plain position UPDATE message.
func updateMessage(id *Identity) srsproto.ControlMessage {
	return srsproto.ControlMessage{
		Client: &srsproto.ClientInfo{
			ClientGUID: id.SGUID(),
			Name:       id.Name(),
			Coalition:  srsproto.CoalitionBlue,
			Position:   positionToWire(id.Position()),
		},
		MsgType: srsproto.MsgTypeUpdate,
		Version: srsproto.ProtocolVersion,
	}
}

// radioUpdateFromGame builds a RADIO_UPDATE reflecting the latest buffered
// GameMessage from the in-sim relay.
func radioUpdateFromGame(id *Identity, gm GameMessage) srsproto.ControlMessage {
	return srsproto.ControlMessage{
		Client: &srsproto.ClientInfo{
			ClientGUID: id.SGUID(),
			Name:       gm.Name,
			Coalition:  srsproto.CoalitionBlue,
			RadioInfo: &srsproto.RadioInfo{
				Name:                     gm.Name,
				PTT:                      gm.PTT,
				Radios:                   gm.Radios,
				Control:                  srsproto.RadioControlHotas,
				Selected:                 gm.Selected,
				Unit:                     gm.Unit,
				UnitID:                   gm.UnitID,
				SimultaneousTransmission: true,
			},
			Position: positionToWire(gm.Position),
		},
		MsgType: srsproto.MsgTypeRadioUpdate,
		Version: srsproto.ProtocolVersion,
	}
}
