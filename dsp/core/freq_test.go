package core

import (
	"encoding/json"
	"testing"
)

func TestFreqZeroValueIsAbsent(t *testing.T) {
	var f Freq
	if f.OK() {
		t.Fatal("zero Freq reported present")
	}
	if _, ok := f.Get(); ok {
		t.Fatal("Get on zero Freq reported present")
	}
	if f.String() != "none" {
		t.Fatalf("String() = %q, want none", f.String())
	}
}

func TestFreqZeroHzIsPresent(t *testing.T) {
	f := Some(0)
	hz, ok := f.Get()
	if !ok || hz != 0 {
		t.Fatalf("Get() = (%v, %v), want (0, true)", hz, ok)
	}
}

func TestFreqInRange(t *testing.T) {
	tests := []struct {
		name string
		f    Freq
		want bool
	}{
		{name: "inside", f: Some(220), want: true},
		{name: "lower edge", f: Some(60), want: true},
		{name: "upper edge", f: Some(1000), want: true},
		{name: "below", f: Some(59.9), want: false},
		{name: "absent", f: None(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.InRange(60, 1000); got != tt.want {
				t.Fatalf("InRange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFreqJSON(t *testing.T) {
	type sample struct {
		Pitch Freq `json:"pitch"`
	}

	data, err := json.Marshal([]sample{{Pitch: Some(220.5)}, {Pitch: None()}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `[{"pitch":220.5},{"pitch":null}]` {
		t.Fatalf("Marshal = %s", data)
	}

	var back []sample
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back[0].Pitch != Some(220.5) || back[1].Pitch.OK() {
		t.Fatalf("Unmarshal = %+v", back)
	}
}
