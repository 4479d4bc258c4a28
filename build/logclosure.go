package build

import (
	"github.com/davecgh/go-spew/spew"
)

// LogClosure defers rendering an expensive log argument until the logger
// actually formats it, so requests and snapshots are only dumped at trace
// level.
type LogClosure func() string

// String invokes the underlying function and returns the result.
func (c LogClosure) String() string {
	return c()
}

// SpewLogClosure dumps a with spew once the line is emitted.
func SpewLogClosure(a any) LogClosure {
	return func() string {
		return spew.Sdump(a)
	}
}
