package scheduler

import "github.com/esteinig/pathfinder/internal/publish"

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBudgets sets the concurrency budget of resource labels.
func WithBudgets(budgets map[string]int) Option {
	return func(s *Scheduler) {
		for label, n := range budgets {
			s.budgets[label] = n
		}
	}
}

// WithDefaultBudget sets the budget of labels absent from WithBudgets.
func WithDefaultBudget(n int) Option {
	return func(s *Scheduler) { s.defaultBudget = n }
}

// WithWorkers sets the size of the worker pool.
func WithWorkers(n int) Option {
	return func(s *Scheduler) { s.workers = n }
}

// WithPublisher sets where completed tasks publish their outputs.
func WithPublisher(p publish.Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}
