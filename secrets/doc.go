/*
Package secrets assembles the environment handed to the child task
process.

Material comes from pluggable sources: a host-environment allowlist, a
dotenv file, an AWS Secrets Manager secret, and a Vault KV v2 path.
All sources are loaded once at boot by the Builder; per-request calls
only merge the cached material with request-scoped variables, so no
request ever blocks on a secrets backend.

Secret values never appear in logs or responses. Diagnostics expose
key names only.
*/
package secrets
