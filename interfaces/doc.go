/*
Package interfaces defines the core types and contracts of the attested
task gateway. It provides the boundary between components without
implementation details.

# Task Execution

TaskConfig describes a single invocation of the untrusted child
process: where the executable bundle lives, which runtime launches it,
how long it may run, and the arguments and environment it receives.
A TaskConfig is built fresh per request and never mutated after being
handed to a runner.

TaskOutput carries everything the supervisor observed: the full
captured stdout and stderr, the exit code (-1 when unobtainable), and
the wall-clock duration stamped by the caller around the whole
validate-and-run sequence.

TaskRunner is the capability interface for the child process. Handlers
depend on it rather than on a concrete runner so tests can substitute
an implementation that never touches the process table.

# Error Taxonomy

Validation errors (ErrMissingBundle, ErrMissingManifest,
ErrMissingEntryPoint) are detected before any process is spawned.
ErrRuntimeUnavailable covers the runtime binary probe, which is a
separate concern from bundle validation. ErrSpawnFailure and
StreamError cover process startup and pipe I/O. ErrTimeout marks the
distinct "the task never finished" outcome. A non-zero exit code is
deliberately not part of this taxonomy: it is data inside TaskOutput,
and the caller decides what it means.
*/
package interfaces
