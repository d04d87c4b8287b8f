package domain

import "placedir/internal/geo"

// Status is the ordered lifecycle state of a PlaceRevision.
type Status int

// Status values are ordered: Archived is negative so that comparisons
// like status >= Created exclude archived revisions.
const (
	Archived  Status = -1
	Created   Status = 0
	Confirmed Status = 1
	Rejected  Status = 2
)

// Place is the stable identity record pointing at its current
// revision. The license is invariant across revisions.
type Place struct {
	UID        string
	CurrentRev int64
	License    string
}

// Address holds the optional postal address components of a revision.
type Address struct {
	Street  string
	Zip     string
	City    string
	Country string
}

// Contact holds the optional contact details of a revision.
type Contact struct {
	Email string
	Phone string
}

// PlaceRevision is an immutable snapshot owned by exactly one Place.
type PlaceRevision struct {
	PlaceUID    string
	Rev         int64
	CreatedAt   int64
	CreatedBy   string
	Status      Status
	Title       string
	Description string
	Pos         geo.Point
	Address     *Address
	Contact     *Contact
	Homepage    string
	Image       string
	ImageLink   string
	Tags        []string
	ArchivedAt  *int64
}

// StatusLogEntry is an append-only record of a status transition.
type StatusLogEntry struct {
	ID         int64
	RevisionID int64
	Status     Status
	At         int64
	By         string
	Context    string
	Note       string
}
