package jobs

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const ingestKind = "ingest_source"

// IngestArgs asks for one ingestion run of Source. Jobs are unique per
// source while queued or running, so a source never runs twice at once.
type IngestArgs struct {
	Source string `json:"source" river:"unique"`
	Limit  int    `json:"limit"`
}

func (IngestArgs) Kind() string { return ingestKind }

func (a IngestArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: QueueName(a.Source),
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRetryable,
				rivertype.JobStateRunning,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// QueueName is the dedicated single-worker queue of a source.
func QueueName(source string) string {
	return "ingest_" + source
}
