//go:build !unix

package instance

import "os"

// Advisory locking is only implemented on unix; elsewhere the guard is a no-op.
func tryLock(*os.File) error { return nil }

func unlock(*os.File) error { return nil }
