package window_test

import (
	"fmt"

	"github.com/TomokaItou/voice-training/dsp/window"
)

func ExampleParseType() {
	t, err := window.ParseType("Blackman")
	if err != nil {
		panic(err)
	}
	w := window.Generate(t, 5)
	fmt.Printf("%s %.2f %.2f %.2f\n", t, w[0], w[1], w[2])
	// Output:
	// blackman 0.00 0.34 1.00
}
