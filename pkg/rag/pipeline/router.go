package pipeline

import (
	"strings"

	"policy-qa-be/internal/constant"
)

// Decision is the routing verdict for one incoming query.
type Decision struct {
	Task   string
	Reason string
}

var routingKeywords = map[string][]string{
	constant.TaskUpload: {"upload", "ingest", "import", "add document", "add file", "attach"},
	constant.TaskManage: {"delete", "remove", "archive", "rename", "list documents", "manage"},
}

// routingOrder fixes the scan order so keyword ties always resolve the
// same way.
var routingOrder = []string{constant.TaskUpload, constant.TaskManage}

// Route classifies the query into a task. An explicit hint wins
// unconditionally; otherwise keyword scoring decides, and anything
// ambiguous defaults to search since that is the pipeline's purpose.
func Route(rawQuery, taskHint string) Decision {
	switch taskHint {
	case constant.TaskSearch, constant.TaskUpload, constant.TaskManage:
		return Decision{Task: taskHint, Reason: "explicit task hint"}
	}

	lowered := strings.ToLower(rawQuery)
	bestTask := constant.TaskSearch
	bestHits := 0
	for _, task := range routingOrder {
		hits := 0
		for _, kw := range routingKeywords[task] {
			if strings.Contains(lowered, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestTask = task
		}
	}

	if bestHits == 0 {
		return Decision{Task: constant.TaskSearch, Reason: "default route"}
	}
	return Decision{Task: bestTask, Reason: "keyword match"}
}
