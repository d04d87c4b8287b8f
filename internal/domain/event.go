package domain

import "placedir/internal/geo"

// Event is a time-bounded point of interest, supplemented from the
// original source's event subsystem. Unlike Place, Event has no
// revision history: it is created, updated and deleted directly.
type Event struct {
	UID         string
	Title       string
	Description string
	Start       int64
	End         *int64
	Pos         geo.Point
	Address     *Address
	Contact     *Contact
	Organizer   string
	CreatedBy   string
	Tags        []string
}
