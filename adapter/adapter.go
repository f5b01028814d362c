// Package adapter parses raw score files into the canonical event
// model. One adapter per source format; everything format-specific
// (timing units, drum conventions, voice layout) stays here.
package adapter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/otnemrasordep/muspy/model"
)

type Format string

const (
	FormatMIDI     Format = "midi"
	FormatMusicXML Format = "musicxml"
	// FormatMXL is a MusicXML document in a ZIP container.
	FormatMXL Format = "mxl"
)

var midiMagic = []byte("MThd")
var zipMagic = []byte("PK")

// Sniff picks a format from the file extension, falling back to magic
// bytes when the extension is unknown.
func Sniff(path string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi":
		return FormatMIDI, nil
	case ".xml", ".musicxml":
		return FormatMusicXML, nil
	case ".mxl":
		return FormatMXL, nil
	}
	switch {
	case bytes.HasPrefix(data, midiMagic):
		return FormatMIDI, nil
	case bytes.HasPrefix(data, zipMagic):
		return FormatMXL, nil
	case bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf"), []byte("<")):
		return FormatMusicXML, nil
	}
	return "", &model.FormatError{Format: "score", Err: errors.New("unrecognized format")}
}

// Parse reads one score file and returns an un-canonicalized Music.
// The file handle is released before Parse returns, on every path.
func Parse(path string) (*model.Music, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read score file: %w", err)
	}
	format, err := Sniff(path, data)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data, format)
}

// ParseBytes parses raw bytes as the given format.
func ParseBytes(data []byte, format Format) (*model.Music, error) {
	switch format {
	case FormatMIDI:
		return ParseMIDI(data)
	case FormatMusicXML:
		return ParseMusicXML(data)
	case FormatMXL:
		return ParseMXL(data)
	default:
		return nil, &model.FormatError{Format: string(format), Err: errors.New("unsupported format")}
	}
}
