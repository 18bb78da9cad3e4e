package taskrunner

import (
	"fmt"
	"strings"

	"github.com/attestedrun/tee-task-gateway/structured"
)

// Literal markers bracketing the machine-parseable result inside the
// child's otherwise free-form stdout.
const (
	ResultStartMarker = "===TASK_RESULT_START==="
	ResultEndMarker   = "===TASK_RESULT_END==="
)

// ExtractResult scans stdout for the substring strictly between the
// first start marker and the first subsequent end marker, trims it,
// and parses it as a structured value.
//
// Extraction never fails the request. The child is a third-party
// artifact that may emit diagnostic noise alongside or instead of its
// result; missing markers or unparseable content degrade to a
// failure-flagged value carrying the reason and the raw stdout
// verbatim. The second return value reports whether a genuine result
// was extracted.
func ExtractResult(stdout string) (structured.Value, bool) {
	start := strings.Index(stdout, ResultStartMarker)
	if start < 0 {
		return fallbackResult("task result start marker not found in output", stdout), false
	}

	rest := stdout[start+len(ResultStartMarker):]
	end := strings.Index(rest, ResultEndMarker)
	if end < 0 {
		return fallbackResult("task result end marker not found in output", stdout), false
	}

	value, err := structured.Parse(strings.TrimSpace(rest[:end]))
	if err != nil {
		return fallbackResult(fmt.Sprintf("parsing task result: %v", err), stdout), false
	}
	return value, true
}

func fallbackResult(reason, stdout string) structured.Value {
	return structured.Map(
		structured.Member{Key: "status", Value: structured.String("failed")},
		structured.Member{Key: "error", Value: structured.String(reason)},
		structured.Member{Key: "raw_output", Value: structured.String(stdout)},
	)
}
