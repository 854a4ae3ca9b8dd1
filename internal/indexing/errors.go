package indexing

import "fmt"

type DimensionError struct {
	Expected uint
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding has %d dimensions, expected %d", e.Got, e.Expected)
}
