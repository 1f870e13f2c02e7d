// internal/nmea/encode.go
package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tamzrod/uavbridge/internal/telemetry"
)

// FeetToMeters is the fixed altitude conversion factor.
const FeetToMeters = 0.3048

// ChecksumMode selects how the two standard sentences are terminated.
type ChecksumMode int

const (
	// ChecksumLiteral keeps the fixed suffixes existing consumers expect.
	ChecksumLiteral ChecksumMode = iota
	// ChecksumComputed appends the real XOR checksum.
	ChecksumComputed
)

// Fixed suffixes inherited from recorded receiver output.
const (
	literalGGA = "6F"
	literalRMC = "6D"

	// literalCourse is the course over ground the literal RMC suffix was
	// recorded with.
	literalCourse = "267.70"
)

// ParseChecksumMode maps a config value onto a mode. Empty means literal.
func ParseChecksumMode(s string) (ChecksumMode, error) {
	switch strings.ToLower(s) {
	case "", "literal":
		return ChecksumLiteral, nil
	case "computed":
		return ChecksumComputed, nil
	default:
		return 0, fmt.Errorf("nmea: unknown checksum mode %q", s)
	}
}

// Encoder turns telemetry snapshots into sentences.
type Encoder struct {
	Checksum ChecksumMode
}

// Encode produces exactly three sentences in order: GPGGA, GPRMC, EXINJ.
// Any missing key fails the whole call; nothing partial is returned.
func (e Encoder) Encode(s telemetry.Snapshot, now time.Time) ([]string, error) {
	v, err := required(s)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	hms := now.Format("150405")
	dmy := now.Format("020106")

	lat, latHemi := toDegreesMinutes(v.lat, "N", "S")
	lon, lonHemi := toDegreesMinutes(v.lon, "E", "W")
	alt := v.alt * FeetToMeters

	gga := fmt.Sprintf("$GPGGA,%s.000,%09.4f,%s,%010.4f,%s,1,7,1.15,%.1f,M,23.7,M,,",
		hms, lat, latHemi, lon, lonHemi, alt)
	rmc := fmt.Sprintf("$GPRMC,%s.000,A,%09.4f,%s,%010.4f,%s,%.2f,%s,%s,,,A",
		hms, lat, latHemi, lon, lonHemi, v.groundspeed, e.course(v.heading), dmy)
	inj := fmt.Sprintf("$EXINJ,%s,%s,%s,%s,NA",
		formatValue(v.heading), formatValue(v.roll), formatValue(v.pitch), formatValue(v.heading))

	return []string{
		e.terminate(gga, literalGGA),
		e.terminate(rmc, literalRMC),
		inj,
	}, nil
}

// EncodePID renders a controller tuning triple as a proprietary sentence.
func EncodePID(kp, ki, kd float64) string {
	return fmt.Sprintf("$EXPID,%s,%s,%s,NA", formatValue(kp), formatValue(ki), formatValue(kd))
}

// course is the fixed recorded value in literal mode and the heading otherwise.
func (e Encoder) course(heading float64) string {
	if e.Checksum == ChecksumComputed {
		return strconv.FormatFloat(heading, 'f', 2, 64)
	}
	return literalCourse
}

func (e Encoder) terminate(body, literal string) string {
	if e.Checksum == ChecksumComputed {
		return fmt.Sprintf("%s*%02X", body, Checksum(body))
	}
	return body + "*" + literal
}

// ---- inputs ----

type values struct {
	lat, lon, alt       float64
	heading, roll, pitch float64
	groundspeed         float64
}

func required(s telemetry.Snapshot) (values, error) {
	var v values

	fields := []struct {
		key string
		dst *float64
	}{
		{telemetry.KeyAltitude, &v.alt},
		{telemetry.KeyLatitude, &v.lat},
		{telemetry.KeyLongitude, &v.lon},
		{telemetry.KeyHeading, &v.heading},
		{telemetry.KeyRoll, &v.roll},
		{telemetry.KeyPitch, &v.pitch},
		{telemetry.KeyGroundspeed, &v.groundspeed},
	}

	for _, f := range fields {
		x, err := s.Float(f.key)
		if err != nil {
			return values{}, &IncompleteTelemetryError{Key: f.key, Err: err}
		}
		*f.dst = x
	}

	return v, nil
}

// ---- formatting ----

// toDegreesMinutes converts decimal degrees into NMEA ddmm.mmmm.
// Non-negative values take the positive hemisphere letter.
func toDegreesMinutes(deg float64, pos, neg string) (float64, string) {
	hemi := pos
	if deg < 0 {
		hemi = neg
		deg = -deg
	}

	whole := math.Floor(deg)
	minutes := math.Round((deg-whole)*60*1e4) / 1e4
	if minutes >= 60 {
		whole++
		minutes -= 60
	}

	return whole*100 + minutes, hemi
}

// formatValue prints a float the way it was received: shortest round-trip
// digits, integral values keep a trailing ".0".
func formatValue(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}
