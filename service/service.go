/*
   Lifecycle management for the long-running components of the system.
*/
package service

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

// Service is implemented by components that are run as part of a Group.
type Service interface {
	Name() string

	// Run executes the service and blocks until the context gets cancelled,
	// the service completes its work or an error occurs.
	Run(context.Context) error
}

// Group is a list of Service instances that execute concurrently.
type Group []Service

// Run executes all Service instances in the group using the provided context.
// If any of the services reports an error, the context passed to the others
// gets cancelled. Calls to Run block until every service has returned; the
// errors of all failed services are merged.
func (g Group) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(g))
	wg.Add(len(g))
	for _, s := range g {
		go func(s Service) {
			defer wg.Done()
			if err := s.Run(runCtx); err != nil {
				errCh <- xerrors.Errorf("%s: %w", s.Name(), err)
				cancel()
			}
		}(s)
	}
	wg.Wait()

	var err error
	close(errCh)
	for svcErr := range errCh {
		err = multierror.Append(err, svcErr)
	}
	return err
}
