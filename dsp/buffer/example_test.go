package buffer_test

import (
	"fmt"

	"github.com/TomokaItou/voice-training/dsp/buffer"
)

func ExampleBuffer() {
	b := buffer.New(8)
	b.Append([]float64{1, 2, 3, 4, 5})

	for frame := b.Head(3); frame != nil; frame = b.Head(3) {
		fmt.Println(frame)
		b.Consume(2)
	}

	fmt.Println(b.Samples())

	// Output:
	// [1 2 3]
	// [3 4 5]
	// [5]
}
