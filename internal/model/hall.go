package model

// Hall is a screening room. Sessions reference halls and block their
// deletion.
type Hall struct {
	ID          uint64 // halls.id
	Name        string // halls.name
	Rows        uint32 // halls.rows
	SeatsPerRow uint32 // halls.seats_per_row
}

// Capacity is the number of seats in the hall.
func (h Hall) Capacity() uint32 { return h.Rows * h.SeatsPerRow }
