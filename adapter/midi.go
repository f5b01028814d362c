package adapter

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/otnemrasordep/muspy/model"
	"gitlab.com/gomidi/midi/v2/smf"
)

// lane is one (SMF track, channel) pair under construction. A single
// SMF track carrying notes on several channels becomes several model
// tracks, flagged rather than merged.
type lane struct {
	trackIdx int
	channel  uint8
	program  int
	name     string
	notes    []model.Note
	// open holds indices of notes waiting for their note-off, per key,
	// oldest first.
	open     map[int][]int
	dangling int
	orphans  int
}

// ParseMIDI maps a Standard MIDI File onto the event model. Source
// track order and note-on order are preserved; drums follow the MIDI
// convention (channel 10).
func ParseMIDI(data []byte) (m *model.Music, err error) {
	// The smf reader can panic on hostile input.
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = &model.FormatError{Format: "midi", Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, &model.FormatError{Format: "midi", Err: err}
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, &model.FormatError{Format: "midi", Err: errors.New("SMPTE time division is not supported")}
	}

	m = &model.Music{Resolution: int(ticks.Ticks4th())}

	lanes := make(map[int]*lane)
	var laneOrder []int

	for trackIdx, track := range s.Tracks {
		var absTicks int64
		var trackName string
		var programs [16]int

		getLane := func(ch uint8) *lane {
			k := trackIdx<<8 | int(ch)
			l, ok := lanes[k]
			if !ok {
				l = &lane{
					trackIdx: trackIdx,
					channel:  ch,
					program:  programs[ch],
					open:     make(map[int][]int),
				}
				lanes[k] = l
				laneOrder = append(laneOrder, k)
			}
			return l
		}

		for _, event := range track {
			absTicks += int64(event.Delta)
			var channel, key, velocity, program, num, denom uint8
			var bpm float64
			var text string
			switch {
			case event.Message.GetNoteStart(&channel, &key, &velocity):
				l := getLane(channel)
				l.notes = append(l.notes, model.Note{
					Time:     absTicks,
					Pitch:    int(key),
					Duration: -1,
					Velocity: int(velocity),
				})
				l.open[int(key)] = append(l.open[int(key)], len(l.notes)-1)
			case event.Message.GetNoteEnd(&channel, &key):
				l := getLane(channel)
				queue := l.open[int(key)]
				if len(queue) == 0 {
					l.orphans++
					continue
				}
				idx := queue[0]
				l.open[int(key)] = queue[1:]
				l.notes[idx].Duration = absTicks - l.notes[idx].Time
			case event.Message.GetProgramChange(&channel, &program):
				programs[channel] = int(program)
				if l, ok := lanes[trackIdx<<8|int(channel)]; ok && len(l.notes) == 0 {
					l.program = int(program)
				}
			case event.Message.GetMetaTempo(&bpm):
				m.Tempos = append(m.Tempos, model.Tempo{Time: absTicks, BPM: bpm})
			case event.Message.GetMetaMeter(&num, &denom):
				m.TimeSignatures = append(m.TimeSignatures, model.TimeSignature{
					Time:        absTicks,
					Numerator:   int(num),
					Denominator: int(denom),
				})
			case event.Message.GetMetaTrackName(&text):
				trackName = text
			}
		}

		// Close out the track: note-ons that never saw a note-off are
		// dropped and flagged, not guessed at.
		for _, l := range lanes {
			if l.trackIdx != trackIdx {
				continue
			}
			l.name = trackName
			for _, queue := range l.open {
				l.dangling += len(queue)
			}
			if l.dangling > 0 {
				var kept []model.Note
				for _, n := range l.notes {
					if n.Duration >= 0 {
						kept = append(kept, n)
					}
				}
				l.notes = kept
			}
		}
	}

	// Deterministic model track order: source track index, then channel.
	sort.Slice(laneOrder, func(i, j int) bool { return laneOrder[i] < laneOrder[j] })

	perTrackLanes := make(map[int]int)
	for _, k := range laneOrder {
		perTrackLanes[lanes[k].trackIdx]++
	}

	for _, k := range laneOrder {
		l := lanes[k]
		modelIdx := len(m.Tracks)
		m.Tracks = append(m.Tracks, model.Track{
			Program: l.program,
			IsDrum:  l.channel == 9,
			Name:    l.name,
			Notes:   l.notes,
		})
		if perTrackLanes[l.trackIdx] > 1 {
			m.Report.Add(model.WarnMultiChannelTrack, modelIdx, -1,
				fmt.Sprintf("source track %v carries notes on %v channels", l.trackIdx, perTrackLanes[l.trackIdx]))
		}
		if l.dangling > 0 {
			m.Report.Add(model.WarnDanglingNoteOn, modelIdx, -1,
				fmt.Sprintf("dropped %v note-ons without a matching note-off", l.dangling))
		}
		if l.orphans > 0 {
			m.Report.Add(model.WarnOrphanNoteOff, modelIdx, -1,
				fmt.Sprintf("ignored %v note-offs without a matching note-on", l.orphans))
		}
	}

	// Format-1 files may spread meta events over several tracks; merge
	// them onto one timeline. The stable sort keeps same-tick events in
	// source order.
	sort.SliceStable(m.Tempos, func(i, j int) bool { return m.Tempos[i].Time < m.Tempos[j].Time })
	sort.SliceStable(m.TimeSignatures, func(i, j int) bool { return m.TimeSignatures[i].Time < m.TimeSignatures[j].Time })

	if m.NumNotes() == 0 {
		m.Report.Add(model.WarnNoNoteEvents, -1, -1, "file contains no note events")
	}
	return m, nil
}
