package common

// PackageName is used as the metrics namespace and the default service
// tag on log lines.
const PackageName = "tee_task_gateway"

// Version is set at build time via -ldflags.
var Version = "dev"
