package order

import "strconv"

// Actor identifies who performed a mutation. It is stamped on the order
// together with the timestamp in the same update.
type Actor string

const (
	ActorSweeper        Actor = "system:sweeper"
	ActorPaymentGateway Actor = "system:payment"
)

func UserActor(userID int64) Actor {
	return Actor("user:" + strconv.FormatInt(userID, 10))
}

func StaffActor(staffID int64) Actor {
	return Actor("staff:" + strconv.FormatInt(staffID, 10))
}

func (a Actor) String() string {
	return string(a)
}
