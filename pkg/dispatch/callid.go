package dispatch

import "github.com/google/uuid"

func newCallID() string {
	return uuid.NewString()
}
