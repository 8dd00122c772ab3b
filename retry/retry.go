// Copyright 2026, Crucible Sciences, Inc.

// Package retry retries transient operations: job log writes, artifact
// re-reads, anything that can fail momentarily without the job itself being
// at fault. It is not the job restart policy; that lives in the restart
// package and has its own semantics.
package retry

import (
	"time"
)

type TryFunc func() error
type LogFunc func(error)

// Do calls tryFunc up to tries times, sleeping between attempts and logging
// each intermediate error through logFunc (if non-nil). The last error is
// returned when all tries fail.
func Do(tries int, sleep time.Duration, tryFunc TryFunc, logFunc LogFunc) error {
	if err := tryFunc(); err != nil {
		if tries--; tries > 0 {
			if logFunc != nil {
				logFunc(err)
			}
			time.Sleep(sleep)
			return Do(tries, sleep, tryFunc, logFunc)
		}
		return err
	}
	return nil
}
