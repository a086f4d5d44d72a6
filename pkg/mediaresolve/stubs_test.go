package mediaresolve_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lumenlms/mediaresolve/pkg/mediaresolve"
)

// stubProber answers probes from a fixed table; URIs absent from the
// table are unreachable not-found.
type stubProber struct {
	results map[string]*mediaresolve.ProbeResult
	delay   time.Duration
	probes  int32
}

func (p *stubProber) Probe(ctx context.Context, uri string) (*mediaresolve.ProbeResult, error) {
	atomic.AddInt32(&p.probes, 1)
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	if res, ok := p.results[uri]; ok {
		return res, nil
	}
	return &mediaresolve.ProbeResult{Reason: mediaresolve.ReasonNotFound}, nil
}

func reachable(size int64) *mediaresolve.ProbeResult {
	return &mediaresolve.ProbeResult{
		Reachable:             true,
		SizeBytes:             size,
		ContentType:           "video/mp4",
		SupportsRangeRequests: true,
	}
}

// fixedClock reports a constant time.
type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

// stubProcessor returns a canned processor asset or error.
type stubProcessor struct {
	asset *mediaresolve.ProcessorAsset
	err   error
	calls int32
}

func (p *stubProcessor) GetAsset(ctx context.Context, externalID string) (*mediaresolve.ProcessorAsset, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	return p.asset, nil
}

// stubJobClient drives the secondary strategy: jobs complete after
// pollsUntilDone polls, successfully unless fail is set.
type stubJobClient struct {
	pollsUntilDone int
	fail           bool
	submitErr      error
	resultURI      string

	polls int32
}

func (c *stubJobClient) SubmitThumbnailJob(ctx context.Context, sourceURI string) (*mediaresolve.ThumbnailJob, error) {
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	job := &mediaresolve.ThumbnailJob{ID: "job-1"}
	if c.pollsUntilDone == 0 {
		c.finish(job)
	}
	return job, nil
}

func (c *stubJobClient) GetJob(ctx context.Context, jobID string) (*mediaresolve.ThumbnailJob, error) {
	n := int(atomic.AddInt32(&c.polls, 1))
	job := &mediaresolve.ThumbnailJob{ID: jobID}
	if n >= c.pollsUntilDone {
		c.finish(job)
	}
	return job, nil
}

func (c *stubJobClient) finish(job *mediaresolve.ThumbnailJob) {
	job.Done = true
	job.Failed = c.fail
	if !c.fail {
		uri := c.resultURI
		if uri == "" {
			uri = "s3://media/thumbnails/generated.jpg"
		}
		job.ResultURI = uri
	}
}

// seedAsset registers an asset directly through a repository.
func seedAsset(repo mediaresolve.Repository, asset *mediaresolve.VideoAsset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if asset.ProcessingState == "" {
		asset.ProcessingState = mediaresolve.StatePending
	}
	return repo.CreateAsset(context.Background(), asset)
}
