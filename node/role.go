package node

// Role is what the node does with the radio: send packets on demand or
// listen continuously.
type Role int

const (
	RoleRx Role = iota
	RoleTx
)

// Toggle flips between TX and RX. It does not touch the radio.
func (r *Role) Toggle() {
	if *r == RoleRx {
		*r = RoleTx
	} else {
		*r = RoleRx
	}
}

func (r Role) IsRx() bool { return r == RoleRx }

func (r Role) String() string {
	if r == RoleRx {
		return "RX"
	}
	return "TX"
}
