package transcript

// Word is a single recognized word with diarization data.
type Word struct {
	Word    string
	Speaker *int // nil when the service returned no speaker
	Start   float64
	End     float64
}

// Segment is a run of consecutive words spoken by one speaker.
type Segment struct {
	Speaker int
	Text    string
	Start   float64
}

// GroupBySpeaker merges consecutive words sharing a speaker tag.
// A missing speaker counts as speaker 0, so undiarized words merge with
// speaker 0's.
func GroupBySpeaker(words []Word) []Segment {
	var segments []Segment
	for _, w := range words {
		speaker := 0
		if w.Speaker != nil {
			speaker = *w.Speaker
		}

		if n := len(segments); n > 0 && segments[n-1].Speaker == speaker {
			segments[n-1].Text += " " + w.Word
			continue
		}
		segments = append(segments, Segment{
			Speaker: speaker,
			Text:    w.Word,
			Start:   w.Start,
		})
	}
	return segments
}
