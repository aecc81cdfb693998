package geo

import (
	"bytes"
	"fmt"
	"strconv"
)

// Coord is a latitude or longitude in request payloads. Clients send both
// JSON numbers and numeric strings ("40.7"), so it unmarshals from either;
// it marshals back as a plain number.
type Coord float64

// Float returns the value as a float64 for the computation layers.
func (c Coord) Float() float64 {
	return float64(c)
}

func (c *Coord) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q", string(b))
	}
	*c = Coord(v)
	return nil
}
