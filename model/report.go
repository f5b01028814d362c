package model

// Warning codes. Warnings are data, never control flow.
const (
	WarnZeroDuration      = "nonpositive_duration"
	WarnPitchOutOfRange   = "pitch_out_of_range"
	WarnVelocityRange     = "velocity_out_of_range"
	WarnDuplicateNote     = "duplicate_note"
	WarnDanglingNoteOn    = "dangling_note_on"
	WarnOrphanNoteOff     = "orphan_note_off"
	WarnMultiChannelTrack = "multi_channel_track"
	WarnUnpitchedNotes    = "unpitched_notes"
	WarnNoNoteEvents      = "no_note_events"
	WarnDivisionsMissing  = "divisions_missing"
)

// Warning is one structured validation finding. Note is -1 when the
// warning is not tied to a single note.
type Warning struct {
	Code    string `json:"code"`
	Track   int    `json:"track"`
	Note    int    `json:"note"`
	Message string `json:"message"`
}

// ValidationReport accumulates warnings from the adapter and the
// canonicalizer. Always present on a Music, possibly empty.
type ValidationReport struct {
	Warnings []Warning `json:"warnings"`
}

func (r *ValidationReport) Add(code string, track, note int, message string) {
	r.Warnings = append(r.Warnings, Warning{Code: code, Track: track, Note: note, Message: message})
}

func (r *ValidationReport) Count() int {
	return len(r.Warnings)
}
