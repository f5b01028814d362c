package adapter

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/otnemrasordep/muspy/constants"
	"github.com/otnemrasordep/muspy/model"
)

type xmlPitch struct {
	Step   string `xml:"step"`
	Alter  int    `xml:"alter"`
	Octave int    `xml:"octave"`
}

type xmlUnpitched struct {
	Step   string `xml:"display-step"`
	Octave int    `xml:"display-octave"`
}

type xmlTie struct {
	Type string `xml:"type,attr"`
}

type xmlNote struct {
	Pitch     *xmlPitch     `xml:"pitch"`
	Unpitched *xmlUnpitched `xml:"unpitched"`
	Rest      *struct{}     `xml:"rest"`
	Chord     *struct{}     `xml:"chord"`
	Grace     *struct{}     `xml:"grace"`
	Duration  int           `xml:"duration"`
	Ties      []xmlTie      `xml:"tie"`
}

type xmlTime struct {
	Beats    int `xml:"beats"`
	BeatType int `xml:"beat-type"`
}

type xmlAttributes struct {
	Divisions int      `xml:"divisions"`
	Time      *xmlTime `xml:"time"`
}

type xmlSound struct {
	Tempo float64 `xml:"tempo,attr"`
}

type xmlDirection struct {
	Sound *xmlSound `xml:"sound"`
}

type xmlDuration struct {
	Duration int `xml:"duration"`
}

type xmlScorePart struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"part-name"`
}

var stepSemitones = map[string]int{"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11}

// openTie tracks a sounding tied note so a following tie-stop note can
// extend it instead of starting a new one.
type openTie struct {
	noteIdx int
	end     int64
}

// ParseMusicXML maps a score-partwise MusicXML document onto the event
// model. Elements are processed in document order so <backup>,
// <forward> and <chord> land on the right ticks; divisions are
// rescaled to a fixed resolution since they may change per measure.
func ParseMusicXML(data []byte) (*model.Music, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	m := &model.Music{Resolution: constants.MusicXMLResolution}

	partNames := make(map[string]string)
	sawRoot := false

	var (
		track       *model.Track
		trackIdx    int
		cursor      int64
		lastOnset   int64
		divisions   int
		warnedDiv   bool
		warnedPerc  bool
		ties        map[int]openTie
		noteOrdinal int
	)

	toTicks := func(dur int) int64 {
		d := divisions
		if d <= 0 {
			d = 1
		}
		return int64(dur) * constants.MusicXMLResolution / int64(d)
	}

	flushTrack := func() {
		if track != nil {
			m.Tracks = append(m.Tracks, *track)
		}
		track = nil
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &model.FormatError{Format: "musicxml", Err: err}
		}

		switch element := token.(type) {
		case xml.StartElement:
			if !sawRoot {
				if element.Name.Local != "score-partwise" {
					return nil, &model.FormatError{Format: "musicxml",
						Err: fmt.Errorf("unsupported root element <%v>", element.Name.Local)}
				}
				sawRoot = true
				continue
			}
			switch element.Name.Local {
			case "score-part":
				var sp xmlScorePart
				if err := decoder.DecodeElement(&sp, &element); err != nil {
					return nil, &model.FormatError{Format: "musicxml", Err: err}
				}
				partNames[sp.ID] = sp.Name
			case "part":
				flushTrack()
				trackIdx = len(m.Tracks)
				track = &model.Track{}
				for _, attr := range element.Attr {
					if attr.Name.Local == "id" {
						track.Name = partNames[attr.Value]
					}
				}
				cursor, lastOnset = 0, 0
				divisions = 0
				warnedDiv, warnedPerc = false, false
				ties = make(map[int]openTie)
				noteOrdinal = 0
			case "attributes":
				var attrs xmlAttributes
				if err := decoder.DecodeElement(&attrs, &element); err != nil {
					return nil, &model.FormatError{Format: "musicxml", Err: err}
				}
				if attrs.Divisions > 0 {
					divisions = attrs.Divisions
				}
				if attrs.Time != nil && attrs.Time.Beats > 0 && attrs.Time.BeatType > 0 {
					m.TimeSignatures = append(m.TimeSignatures, model.TimeSignature{
						Time:        cursor,
						Numerator:   attrs.Time.Beats,
						Denominator: attrs.Time.BeatType,
					})
				}
			case "direction":
				var dir xmlDirection
				if err := decoder.DecodeElement(&dir, &element); err != nil {
					return nil, &model.FormatError{Format: "musicxml", Err: err}
				}
				if dir.Sound != nil && dir.Sound.Tempo > 0 {
					m.Tempos = append(m.Tempos, model.Tempo{Time: cursor, BPM: dir.Sound.Tempo})
				}
			case "sound":
				var snd xmlSound
				if err := decoder.DecodeElement(&snd, &element); err != nil {
					return nil, &model.FormatError{Format: "musicxml", Err: err}
				}
				if snd.Tempo > 0 {
					m.Tempos = append(m.Tempos, model.Tempo{Time: cursor, BPM: snd.Tempo})
				}
			case "backup":
				var b xmlDuration
				if err := decoder.DecodeElement(&b, &element); err != nil {
					return nil, &model.FormatError{Format: "musicxml", Err: err}
				}
				cursor -= toTicks(b.Duration)
				if cursor < 0 {
					cursor = 0
				}
			case "forward":
				var f xmlDuration
				if err := decoder.DecodeElement(&f, &element); err != nil {
					return nil, &model.FormatError{Format: "musicxml", Err: err}
				}
				cursor += toTicks(f.Duration)
			case "note":
				if track == nil {
					continue
				}
				var note xmlNote
				if err := decoder.DecodeElement(&note, &element); err != nil {
					return nil, &model.FormatError{Format: "musicxml", Err: err}
				}
				if divisions <= 0 && !warnedDiv && note.Grace == nil {
					m.Report.Add(model.WarnDivisionsMissing, trackIdx, -1,
						"notes before any <divisions> declaration, assuming 1")
					warnedDiv = true
				}
				duration := toTicks(note.Duration)
				onset := cursor
				if note.Chord != nil {
					onset = lastOnset
				}

				switch {
				case note.Rest != nil:
					// rest advances time only
				case note.Pitch != nil, note.Unpitched != nil:
					var pitch int
					if note.Pitch != nil {
						pitch = (note.Pitch.Octave+1)*12 + stepSemitones[strings.ToUpper(note.Pitch.Step)] + note.Pitch.Alter
					} else {
						pitch = (note.Unpitched.Octave+1)*12 + stepSemitones[strings.ToUpper(note.Unpitched.Step)]
						track.IsDrum = true
						if !warnedPerc {
							m.Report.Add(model.WarnUnpitchedNotes, trackIdx, -1,
								"part contains unpitched notes, treating as percussion")
							warnedPerc = true
						}
					}

					tieStart, tieStop := false, false
					for _, tie := range note.Ties {
						switch tie.Type {
						case "start":
							tieStart = true
						case "stop":
							tieStop = true
						}
					}

					if tieStop {
						if open, ok := ties[pitch]; ok && open.end == onset {
							track.Notes[open.noteIdx].Duration += duration
							if tieStart {
								open.end = onset + duration
								ties[pitch] = open
							} else {
								delete(ties, pitch)
							}
							break
						}
					}

					track.Notes = append(track.Notes, model.Note{
						Time:     onset,
						Pitch:    pitch,
						Duration: duration,
						// MusicXML has no velocity on the note itself;
						// a nominal mezzo-forte matches what converter
						// output carries.
						Velocity: 64,
					})
					noteOrdinal = len(track.Notes) - 1
					if tieStart {
						ties[pitch] = openTie{noteIdx: noteOrdinal, end: onset + duration}
					}
				}

				if note.Chord == nil && note.Grace == nil {
					lastOnset = cursor
					cursor += duration
				}
			}
		}
	}

	if !sawRoot {
		return nil, &model.FormatError{Format: "musicxml", Err: errors.New("no score-partwise document found")}
	}
	flushTrack()

	if m.NumNotes() == 0 {
		m.Report.Add(model.WarnNoNoteEvents, -1, -1, "document contains no notes")
	}
	return m, nil
}

type xmlContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// ParseMXL unwraps a compressed MusicXML container. The META-INF
// manifest names the root document; older archives omit it, so any
// top-level .xml is the fallback.
func ParseMXL(data []byte) (*model.Music, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &model.FormatError{Format: "mxl", Err: err}
	}

	rootPath := ""
	for _, f := range r.File {
		if f.Name == "META-INF/container.xml" {
			raw, err := readZipFile(f)
			if err != nil {
				return nil, &model.FormatError{Format: "mxl", Err: err}
			}
			var container xmlContainer
			if err := xml.Unmarshal(raw, &container); err == nil && len(container.Rootfiles) > 0 {
				rootPath = container.Rootfiles[0].FullPath
			}
		}
	}
	if rootPath == "" {
		for _, f := range r.File {
			if strings.HasSuffix(f.Name, ".xml") && !strings.HasPrefix(f.Name, "META-INF/") {
				rootPath = f.Name
				break
			}
		}
	}
	if rootPath == "" {
		return nil, &model.FormatError{Format: "mxl", Err: errors.New("container has no MusicXML document")}
	}

	for _, f := range r.File {
		if f.Name == rootPath {
			raw, err := readZipFile(f)
			if err != nil {
				return nil, &model.FormatError{Format: "mxl", Err: err}
			}
			return ParseMusicXML(raw)
		}
	}
	return nil, &model.FormatError{Format: "mxl", Err: fmt.Errorf("root document %v missing from container", rootPath)}
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
