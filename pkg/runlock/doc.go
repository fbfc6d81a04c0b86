/*
Package runlock serializes orchestrator invocations on one host.

The provisioning core is written for a single caller: the sequencer runs
modules one at a time and no component carries its own locking. That
assumption is enforced here, at the CLI boundary, with an advisory flock on
a file under the state directory. Two concurrent `chandler install` runs
cannot interleave; the second fails fast with the holder's PID instead of
racing the first over containers and config files.

Crash safety comes from the kernel: a process that dies without releasing
the lock loses its flock automatically, so the PID left in the file never
blocks a later run.

# Usage

	lock := runlock.New(filepath.Join(ctx.StateDir(), "chandler.lock"))
	if err := lock.Acquire(); err != nil {
	    return err // errors.Is(err, runlock.ErrHeld) for the usage exit code
	}
	defer lock.Release()

Read-only verbs (status, version) skip the lock.
*/
package runlock
