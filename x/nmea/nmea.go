// Package nmea decodes the NMEA 0183 sentences needed for a position fix
// (GGA and RMC) from any talker (GP, GN, GL...).
package nmea

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrFormat   = errors.New("nmea: malformed sentence")
	ErrChecksum = errors.New("nmea: checksum mismatch")
	ErrType     = errors.New("nmea: unexpected sentence type")
	ErrNoFix    = errors.New("nmea: no fix")
)

// Sentence is a split sentence. Fields excludes the address field.
type Sentence struct {
	Talker string
	Type   string
	Fields []string
}

// Parse validates framing and, when present, the checksum.
func Parse(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if len(line) < 7 || line[0] != '$' {
		return Sentence{}, ErrFormat
	}
	body := line[1:]
	if i := strings.IndexByte(body, '*'); i >= 0 {
		want, err := strconv.ParseUint(body[i+1:], 16, 8)
		if err != nil {
			return Sentence{}, ErrFormat
		}
		if checksum(body[:i]) != byte(want) {
			return Sentence{}, ErrChecksum
		}
		body = body[:i]
	}
	parts := strings.Split(body, ",")
	addr := parts[0]
	if len(addr) != 5 {
		return Sentence{}, ErrFormat
	}
	return Sentence{Talker: addr[:2], Type: addr[2:], Fields: parts[1:]}, nil
}

func checksum(s string) byte {
	var c byte
	for i := 0; i < len(s); i++ {
		c ^= s[i]
	}
	return c
}

// Coord converts ddmm.mmmm (or dddmm.mmmm) plus a hemisphere letter to
// signed decimal degrees.
func Coord(value, hemi string) (float64, error) {
	dot := strings.IndexByte(value, '.')
	if dot < 0 {
		dot = len(value)
	}
	if dot < 3 {
		return 0, ErrFormat
	}
	d, err := strconv.ParseFloat(value[:dot-2], 64)
	if err != nil {
		return 0, ErrFormat
	}
	m, err := strconv.ParseFloat(value[dot-2:], 64)
	if err != nil || m >= 60 {
		return 0, ErrFormat
	}
	dec := d + m/60
	switch hemi {
	case "N", "E":
	case "S", "W":
		dec = -dec
	default:
		return 0, ErrFormat
	}
	return dec, nil
}

// GGA is a fix data sentence.
type GGA struct {
	Lat, Lon float64
	AltM     float64
	Quality  int
	Sats     int
}

// GGA decodes a GGA sentence. A zero fix quality yields ErrNoFix.
func (s Sentence) GGA() (GGA, error) {
	if s.Type != "GGA" {
		return GGA{}, ErrType
	}
	f := s.Fields
	if len(f) < 9 {
		return GGA{}, ErrFormat
	}
	q, err := strconv.Atoi(f[5])
	if err != nil {
		return GGA{}, ErrFormat
	}
	if q == 0 {
		return GGA{Quality: 0}, ErrNoFix
	}
	var g GGA
	g.Quality = q
	if g.Lat, err = Coord(f[1], f[2]); err != nil {
		return GGA{}, err
	}
	if g.Lon, err = Coord(f[3], f[4]); err != nil {
		return GGA{}, err
	}
	if f[6] != "" {
		if g.Sats, err = strconv.Atoi(f[6]); err != nil {
			return GGA{}, ErrFormat
		}
	}
	if f[8] != "" {
		if g.AltM, err = strconv.ParseFloat(f[8], 64); err != nil {
			return GGA{}, ErrFormat
		}
	}
	return g, nil
}

// RMC is a recommended minimum sentence.
type RMC struct {
	Lat, Lon float64
}

// RMC decodes an RMC sentence. Status "V" yields ErrNoFix.
func (s Sentence) RMC() (RMC, error) {
	if s.Type != "RMC" {
		return RMC{}, ErrType
	}
	f := s.Fields
	if len(f) < 6 {
		return RMC{}, ErrFormat
	}
	if f[1] != "A" {
		return RMC{}, ErrNoFix
	}
	var r RMC
	var err error
	if r.Lat, err = Coord(f[2], f[3]); err != nil {
		return RMC{}, err
	}
	if r.Lon, err = Coord(f[4], f[5]); err != nil {
		return RMC{}, err
	}
	return r, nil
}
