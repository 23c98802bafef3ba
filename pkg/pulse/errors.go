package pulse

import "errors"

// ErrSelfReferentialWrite is carried by the panic raised when a State is
// written while the computation currently in progress has already read it.
// The memoization model cannot represent a value that changes under its own
// consumer mid-evaluation, so the write is rejected rather than silently
// producing an inconsistent derivation.
var ErrSelfReferentialWrite = errors.New("pulse: state written during a computation that read it")

// ErrReentrantNotification is carried by the panic raised when a watcher
// notify callback reads or writes a signal. Notify callbacks only learn that
// something changed; probing and flushing must happen outside the callback.
var ErrReentrantNotification = errors.New("pulse: signal access inside a notify callback")
