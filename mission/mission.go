// Package mission parses textual station directives out of a mission
// briefing and out of unit display names. It mirrors the regex-driven
// extraction the DATIS mission module performs against DCS's Lua
// mission tables, reimplemented here against plain strings so it can be
// exercised without a Lua host.
//
// This package is not in the critical path of the session driver: a
// malformed directive is simply skipped, never fatal, per the
// ConfigurationError kind.
package mission

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Provider identifies which cloud TTS vendor a VoiceSpec names.
type Provider int

const (
	// ProviderDefault is the zero value. Parsing never produces it: a
	// voice with no recognized PROVIDER: prefix is attributed to
	// ProviderGoogleCloud.
	ProviderDefault Provider = iota
	ProviderGoogleCloud
	ProviderAWS
)

func (p Provider) String() string {
	switch p {
	case ProviderGoogleCloud:
		return "GC"
	case ProviderAWS:
		return "AWS"
	default:
		return ""
	}
}

// VoiceSpec is a parsed `VOICE <VoiceSpec>` clause: an optional
// provider prefix plus a provider-specific voice name.
type VoiceSpec struct {
	Provider Provider
	Voice    string
}

func (v VoiceSpec) String() string {
	if v.Provider == ProviderDefault {
		return v.Voice
	}
	return v.Provider.String() + ":" + v.Voice
}

// parseVoiceSpec splits an optional `GC:`/`AWS:` prefix from the voice
// name. Absence of a recognized prefix selects Google Cloud and treats
// the whole string as the voice name; only the two known prefixes are
// special-cased.
func parseVoiceSpec(raw string) VoiceSpec {
	switch {
	case strings.HasPrefix(raw, "GC:"):
		return VoiceSpec{Provider: ProviderGoogleCloud, Voice: strings.TrimPrefix(raw, "GC:")}
	case strings.HasPrefix(raw, "AWS:"):
		return VoiceSpec{Provider: ProviderAWS, Voice: strings.TrimPrefix(raw, "AWS:")}
	default:
		return VoiceSpec{Provider: ProviderGoogleCloud, Voice: raw}
	}
}

// TransmitterKind distinguishes the four directive forms a StationConfig
// may have come from.
type TransmitterKind int

const (
	TransmitterATIS TransmitterKind = iota
	TransmitterCarrier
	TransmitterWeather
	TransmitterBroadcast
)

// Station is the fully resolved record a directive parses into, per
// `{ name, freq, tts_voice?, transmitter_kind }`.
type Station struct {
	Name            string
	Freq            uint64
	Traffic         *uint64
	Voice           *VoiceSpec
	TransmitterKind TransmitterKind
	Message         string // only set for TransmitterBroadcast
}

// mhzToHz converts a frequency given in MHz to Hz, rounding to the
// nearest integer (`round(value * 1_000_000)`).
func mhzToHz(mhz string) (uint64, error) {
	f, err := strconv.ParseFloat(mhz, 64)
	if err != nil {
		return 0, fmt.Errorf("mission: invalid frequency %q: %w", mhz, err)
	}
	return uint64(math.Round(f * 1_000_000)), nil
}

const freqPattern = `[1-3]\d{2}(?:\.\d{1,3})?`

var (
	atisDirective = regexp.MustCompile(
		`(?i)^ATIS ([A-Za-z- ]+) (` + freqPattern + `)(?:,[ ]?TRAFFIC (` + freqPattern + `))?(?:,[ ]?VOICE ([A-Za-z-:]+))?$`,
	)
	carrierDirective = regexp.MustCompile(
		`(?i)^CARRIER ([A-Za-z- ]+) (` + freqPattern + `)(?:,[ ]?VOICE ([A-Za-z-:]+))?$`,
	)
	weatherDirective = regexp.MustCompile(
		`(?i)^WEATHER ([A-Za-z- ]+) (` + freqPattern + `)(?:,[ ]?VOICE ([A-Za-z-:]+))?$`,
	)
	broadcastDirective = regexp.MustCompile(
		`(?i)^BROADCAST (` + freqPattern + `)(?:,[ ]?VOICE ([A-Za-z-:]+))?:[ ]*(.+)$`,
	)

	briefingATIS    = regexp.MustCompile(`ATIS ([A-Za-z- ]+) (` + freqPattern + `)`)
	briefingTraffic = regexp.MustCompile(`TRAFFIC ([A-Za-z-]+) (` + freqPattern + `)`)
)

func optionalVoice(s string) *VoiceSpec {
	if s == "" {
		return nil
	}
	v := parseVoiceSpec(s)
	return &v
}

func optionalFreq(s string) (*uint64, error) {
	if s == "" {
		return nil, nil
	}
	hz, err := mhzToHz(s)
	if err != nil {
		return nil, err
	}
	return &hz, nil
}

// ParseATIS parses a single `ATIS <Name> <FreqMHz> [, TRAFFIC
// <FreqMHz>] [, VOICE <VoiceSpec>]` directive. It returns false if the
// input does not match the grammar.
func ParseATIS(directive string) (Station, bool) {
	m := atisDirective.FindStringSubmatch(directive)
	if m == nil {
		return Station{}, false
	}
	freq, err := mhzToHz(m[2])
	if err != nil {
		return Station{}, false
	}
	traffic, err := optionalFreq(m[3])
	if err != nil {
		return Station{}, false
	}
	return Station{
		Name:            strings.TrimSpace(m[1]),
		Freq:            freq,
		Traffic:         traffic,
		Voice:           optionalVoice(m[4]),
		TransmitterKind: TransmitterATIS,
	}, true
}

// ParseCarrier parses a `CARRIER <Name> <FreqMHz> [, VOICE <VoiceSpec>]`
// directive.
func ParseCarrier(directive string) (Station, bool) {
	m := carrierDirective.FindStringSubmatch(directive)
	if m == nil {
		return Station{}, false
	}
	freq, err := mhzToHz(m[2])
	if err != nil {
		return Station{}, false
	}
	return Station{
		Name:            strings.TrimSpace(m[1]),
		Freq:            freq,
		Voice:           optionalVoice(m[3]),
		TransmitterKind: TransmitterCarrier,
	}, true
}

// ParseWeather parses a `WEATHER <Name> <FreqMHz> [, VOICE
// <VoiceSpec>]` directive.
func ParseWeather(directive string) (Station, bool) {
	m := weatherDirective.FindStringSubmatch(directive)
	if m == nil {
		return Station{}, false
	}
	freq, err := mhzToHz(m[2])
	if err != nil {
		return Station{}, false
	}
	return Station{
		Name:            strings.TrimSpace(m[1]),
		Freq:            freq,
		Voice:           optionalVoice(m[3]),
		TransmitterKind: TransmitterWeather,
	}, true
}

// ParseBroadcast parses a `BROADCAST <FreqMHz> [, VOICE <VoiceSpec>] :
// <message>` directive.
func ParseBroadcast(directive string) (Station, bool) {
	m := broadcastDirective.FindStringSubmatch(directive)
	if m == nil {
		return Station{}, false
	}
	freq, err := mhzToHz(m[1])
	if err != nil {
		return Station{}, false
	}
	return Station{
		Freq:            freq,
		Voice:           optionalVoice(m[2]),
		Message:         m[3],
		TransmitterKind: TransmitterBroadcast,
	}, true
}

// ParseDirective tries each of the four directive forms in turn and
// returns the first match. A directive that matches none of them should
// be skipped silently by the caller, never treated as fatal.
func ParseDirective(directive string) (Station, bool) {
	directive = strings.TrimSpace(directive)
	if s, ok := ParseATIS(directive); ok {
		return s, true
	}
	if s, ok := ParseCarrier(directive); ok {
		return s, true
	}
	if s, ok := ParseWeather(directive); ok {
		return s, true
	}
	if s, ok := ParseBroadcast(directive); ok {
		return s, true
	}
	return Station{}, false
}

// Directive re-emits s in its canonical textual form. Parsing
// Directive's output with the matching Parse* function reproduces s.
func (s Station) Directive() string {
	var b strings.Builder
	switch s.TransmitterKind {
	case TransmitterATIS:
		fmt.Fprintf(&b, "ATIS %s %s", s.Name, formatHz(s.Freq))
		if s.Traffic != nil {
			fmt.Fprintf(&b, ", TRAFFIC %s", formatHz(*s.Traffic))
		}
	case TransmitterCarrier:
		fmt.Fprintf(&b, "CARRIER %s %s", s.Name, formatHz(s.Freq))
	case TransmitterWeather:
		fmt.Fprintf(&b, "WEATHER %s %s", s.Name, formatHz(s.Freq))
	case TransmitterBroadcast:
		fmt.Fprintf(&b, "BROADCAST %s", formatHz(s.Freq))
		if s.Voice != nil {
			fmt.Fprintf(&b, ", VOICE %s", s.Voice.String())
			b.WriteString(": " + s.Message)
			return b.String()
		}
		b.WriteString(": " + s.Message)
		return b.String()
	}
	if s.Voice != nil {
		fmt.Fprintf(&b, ", VOICE %s", s.Voice.String())
	}
	return b.String()
}

// formatHz renders a Hz frequency back as MHz with up to three decimal
// places, trimming trailing zeros the way a human-authored directive
// would.
func formatHz(hz uint64) string {
	mhz := float64(hz) / 1_000_000
	s := strconv.FormatFloat(mhz, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}

// ExtractBriefing scans a full mission briefing text for the two
// case-sensitive global forms `ATIS <Name> <FreqMHz>` and `TRAFFIC
// <Name> <FreqMHz>`, embedded anywhere in the text, and returns a
// station per distinct ATIS name found. A TRAFFIC line whose name
// matches an already-seen ATIS station fills in that station's Traffic
// field; an unmatched TRAFFIC name is dropped, mirroring the source's
// lookup-and-ignore-on-miss behavior.
func ExtractBriefing(briefing string) map[string]Station {
	stations := make(map[string]Station)

	for _, m := range briefingATIS.FindAllStringSubmatch(briefing, -1) {
		name := m[1]
		if _, seen := stations[name]; seen {
			continue
		}
		freq, err := mhzToHz(m[2])
		if err != nil {
			continue
		}
		stations[name] = Station{Name: name, Freq: freq, TransmitterKind: TransmitterATIS}
	}

	for _, m := range briefingTraffic.FindAllStringSubmatch(briefing, -1) {
		name := m[1]
		st, ok := stations[name]
		if !ok {
			continue
		}
		freq, err := mhzToHz(m[2])
		if err != nil {
			continue
		}
		st.Traffic = &freq
		stations[name] = st
	}

	return stations
}
