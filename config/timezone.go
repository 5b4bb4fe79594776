package config

import (
	"log"
	"sync"
	"time"
)

// jstOffset is used when the tz database cannot resolve the configured zone.
const jstOffset = 9 * 60 * 60

var (
	location     *time.Location
	locationOnce sync.Once
)

// Location returns the zone every ViewRecord timestamp is recorded in.
func Location() *time.Location {
	locationOnce.Do(func() {
		location = LoadLocation(Get().Timezone)
	})
	return location
}

// LoadLocation resolves name, falling back to a fixed UTC+9 zone named JST.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("timezone %q not found (%v); using fixed JST (UTC+9)", name, err)
		return time.FixedZone("JST", jstOffset)
	}
	return loc
}

func resetLocation() {
	locationOnce = sync.Once{}
	location = nil
}
