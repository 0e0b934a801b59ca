package cron

import "github.com/flemzord/tgrelay/internal/core"

// ModuleID is the id the scheduler runs under when appended to the app.
const ModuleID core.ModuleID = "cron.scheduler"

// Compile-time interface guards.
var (
	_ core.Module  = (*Scheduler)(nil)
	_ core.Starter = (*Scheduler)(nil)
	_ core.Stopper = (*Scheduler)(nil)
)

// ModuleInfo implements core.Module. The scheduler is not registered
// globally; the application appends it once jobs are collected.
func (s *Scheduler) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return NewScheduler(nil) },
	}
}

// CollectJobs registers the jobs of every module implementing JobProvider
// and returns how many were added.
func (s *Scheduler) CollectJobs(modules []core.Module) (int, error) {
	n := 0
	for _, mod := range modules {
		p, ok := mod.(JobProvider)
		if !ok {
			continue
		}
		for _, j := range p.Jobs() {
			if err := s.RegisterJob(j); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
