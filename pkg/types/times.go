package types

import (
	"fmt"
	"time"
)

// LisbonTZ is the timezone every series is normalized to. OMIE publishes
// Iberian market results and the cooperative bills in Portuguese local time.
var LisbonTZ = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Lisbon")
	if err != nil {
		panic(fmt.Errorf("failed to load lisbon time location: %w", err))
	}
	return loc
}()
