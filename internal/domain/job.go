package domain

import (
	"context"
	"fmt"

	"github.com/berrizdl/core/internal/fsm"
)

// JobState enumerates the lifecycle states of a Job (spec.md §3).
type JobState string

const (
	JobQueued      JobState = "queued"
	JobFetching    JobState = "fetching"
	JobDownloading JobState = "downloading"
	JobMerging     JobState = "merging"
	JobDecrypting  JobState = "decrypting"
	JobMuxing      JobState = "muxing"
	JobRenaming    JobState = "renaming"
	JobDone        JobState = "done"
	JobFailed      JobState = "failed"
	JobSkipped     JobState = "skipped"
)

// JobEvent enumerates the transitions a Job can undergo.
type JobEvent string

const (
	EvFetch     JobEvent = "fetch"
	EvDownload  JobEvent = "download"
	EvMerge     JobEvent = "merge"
	EvDecrypt   JobEvent = "decrypt"
	EvMux       JobEvent = "mux"
	EvRename    JobEvent = "rename"
	EvComplete  JobEvent = "complete"
	EvFail      JobEvent = "fail"
	EvSkip      JobEvent = "skip"
)

// Job is one Pipeline unit (spec.md §3).
type Job struct {
	Descriptor       MediaDescriptor
	ContextCommunity string
	ArtistList       []string
	OutputRoot       string

	machine *fsm.Machine[JobState, JobEvent]
}

// NewJob constructs a Job in the "queued" state with the full stage transition table.
func NewJob(descriptor MediaDescriptor, contextCommunity string, artistList []string, outputRoot string) *Job {
	m, err := fsm.New(JobQueued, jobTransitions())
	if err != nil {
		// The transition table is a compile-time constant; a failure here is a programmer error.
		panic(fmt.Sprintf("domain: invalid job transition table: %v", err))
	}
	return &Job{
		Descriptor:       descriptor,
		ContextCommunity: contextCommunity,
		ArtistList:       artistList,
		OutputRoot:       outputRoot,
		machine:          m,
	}
}

// State returns the job's current lifecycle state.
func (j *Job) State() JobState { return j.machine.State() }

// Fire advances the job's state machine. Any state can transition to
// Failed or Skipped; the happy path is strictly sequential per spec.md §5.
func (j *Job) Fire(ctx context.Context, ev JobEvent) (JobState, error) {
	return j.machine.Fire(ctx, ev)
}

// IsTerminal reports whether the job has reached a terminal state.
func (j *Job) IsTerminal() bool {
	switch j.State() {
	case JobDone, JobFailed, JobSkipped:
		return true
	default:
		return false
	}
}

func jobTransitions() []fsm.Transition[JobState, JobEvent] {
	happyPath := []fsm.Transition[JobState, JobEvent]{
		{From: JobQueued, Event: EvFetch, To: JobFetching},
		{From: JobFetching, Event: EvDownload, To: JobDownloading},
		{From: JobDownloading, Event: EvMerge, To: JobMerging},
		{From: JobMerging, Event: EvDecrypt, To: JobDecrypting},
		{From: JobDecrypting, Event: EvMux, To: JobMuxing},
		{From: JobMuxing, Event: EvRename, To: JobRenaming},
		{From: JobRenaming, Event: EvComplete, To: JobDone},
	}

	// Only VOD/LIVE processing drives a Job through this table; photo, post
	// and notice processing does not create a Job.
	failFromAny := []fsm.Transition[JobState, JobEvent]{}
	for _, s := range []JobState{JobQueued, JobFetching, JobDownloading, JobMerging, JobDecrypting, JobMuxing, JobRenaming} {
		failFromAny = append(failFromAny,
			fsm.Transition[JobState, JobEvent]{From: s, Event: EvFail, To: JobFailed},
			fsm.Transition[JobState, JobEvent]{From: s, Event: EvSkip, To: JobSkipped},
		)
	}

	return append(happyPath, failFromAny...)
}
