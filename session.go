package ds

import "github.com/google/uuid"

// newSessionID tags one Client lifetime (Open..Close) so logs from a
// process that opens and closes the engine more than once can be
// correlated back to the run that produced them.
func newSessionID() string {
	return uuid.NewString()
}
