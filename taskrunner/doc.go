/*
Package taskrunner supervises the untrusted child process that performs
the actual unit of work.

A Runner validates the executable bundle before anything is spawned
(bundle directory, manifest, entry point, each with its own error),
probes the runtime binary as a separate concern, then runs the child
with stdin closed and both output pipes drained concurrently.

The concurrent drain is mandatory, not an optimization. OS pipe
buffers are bounded; a child that writes heavily to one stream while
the parent reads only the other stalls forever once that buffer fills.
Both readers must reach end-of-stream before the runner waits for the
process to exit.

The whole spawn-drain-wait sequence races the context deadline. When
it fires, the runner SIGKILLs the child's entire process group and
reaps it before returning ErrTimeout, so timed-out requests never
accumulate orphaned processes. A non-zero exit code is returned as
data inside TaskOutput, never as an error: the child is a third-party
artifact and the caller decides what its exit status means.

The package also extracts the child's structured result from stdout:
a JSON value between the literal ===TASK_RESULT_START=== and
===TASK_RESULT_END=== markers. Extraction never fails the request:
missing markers or unparseable content degrade to a failure-flagged
value that preserves the raw stdout for diagnosis.
*/
package taskrunner
