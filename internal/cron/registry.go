package cron

import "context"

// Job is one scheduled task the worker runs per tick. Name feeds the
// metrics labels and log fields.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs the worker executes, in registration order.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs. Nil
// jobs are skipped.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{jobs: make([]Job, 0, len(jobs))}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register appends a job to the run order.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
