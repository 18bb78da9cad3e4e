/*
Package httpserver implements the gateway's HTTP API.

The public surface mirrors what external callers verify against the
attestation document:

	GET  /                              liveness ping
	GET  /get_attestation               fresh attestation document (hex)
	POST /process_data                  generic task execution
	POST /embedding_ingest              embedding ingestion task
	POST /retrieve_messages             vector query task
	POST /retrieve_messages_by_blob_ids batch blob retrieval task
	GET  /health_check                  pubkey + connectivity + config status
	GET  /config                        non-sensitive config echo

Operational endpoints (/livez, /readyz, /drain, /undrain, optional
/debug pprof) live on the same listener; Prometheus metrics are served
by a sidecar on a separate address.

Every task endpoint runs the same pipeline: obtain a fresh attestation,
build the child's execution context, validate and run the bundle,
extract the delimited result from stdout, wrap it in a scope-tagged
intent message and sign it. Responses carry {response, signature} and
nothing leaves the gateway unsigned.
*/
package httpserver
