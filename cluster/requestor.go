package cluster

import (
	"fmt"

	"github.com/google/uuid"
)

// RequestorID returns the cluster-wide stable requestor identifier, creating
// it when this is the first replica to start. First writer wins; every other
// replica reads back the winning value.
func RequestorID(m SharedMap) string {
	proposed := fmt.Sprintf("ukur-%s", uuid.NewString())
	winner, _ := m.PutIfAbsent(RequestorIDKey, proposed)
	return winner
}
