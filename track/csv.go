package track

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/TomokaItou/voice-training/dsp/pitch"
)

// WriteCSV writes the voiced samples of c with timestamps in milliseconds
// from the first sample of the contour.
func WriteCSV(w io.Writer, c Contour) error {
	voiced := c.Voiced()
	if len(voiced) == 0 {
		return ErrEmptyContour
	}
	start := c.Pitch[0].Time

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestampMs", "frequencyHz", "note"}); err != nil {
		return err
	}
	for _, s := range voiced {
		row := []string{
			formatMillis(s.Time - start),
			strconv.FormatFloat(s.Pitch.Hz(), 'f', 1, 64),
			pitch.NoteName(s.Pitch),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFormantCSV writes every formant sample with both formants present.
func WriteFormantCSV(w io.Writer, c Contour) error {
	rows := make([][]string, 0, len(c.Formants))
	for _, s := range c.Formants {
		f1, ok1 := s.Formants.F1.Get()
		f2, ok2 := s.Formants.F2.Get()
		if !ok1 || !ok2 {
			continue
		}
		rows = append(rows, []string{
			formatMillis(s.Time - c.Formants[0].Time),
			strconv.FormatFloat(f1, 'f', 1, 64),
			strconv.FormatFloat(f2, 'f', 1, 64),
		})
	}
	if len(rows) == 0 {
		return ErrEmptyContour
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestampMs", "f1Hz", "f2Hz"}); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func formatMillis(d time.Duration) string {
	ms := math.Max(0, math.Round(float64(d)/float64(time.Millisecond)))
	return strconv.FormatInt(int64(ms), 10)
}
