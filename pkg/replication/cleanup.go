package replication

import (
	"io"

	"go.uber.org/multierr"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
)

// ResourceCleanup closes registered resources in reverse order (LIFO).
// Register each socket as it is created and Clear once setup succeeded;
// a deferred Cleanup then only runs on the failure path.
type ResourceCleanup struct {
	resources []namedCloser
	logger    logging.Logger
}

// namedCloser wraps a closer with a descriptive name for logging
type namedCloser struct {
	closer io.Closer
	name   string
}

// NewResourceCleanup creates a new ResourceCleanup instance.
func NewResourceCleanup(logger logging.Logger) *ResourceCleanup {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ResourceCleanup{
		resources: make([]namedCloser, 0, 4),
		logger:    logger,
	}
}

// Add registers a resource to be cleaned up.
func (rc *ResourceCleanup) Add(closer io.Closer, name string) {
	rc.resources = append(rc.resources, namedCloser{closer: closer, name: name})
}

// Cleanup closes all registered resources, logging failures.
// Calling it more than once is safe.
func (rc *ResourceCleanup) Cleanup() {
	if err := rc.CloseAll(); err != nil {
		rc.logger.Warn("cleanup incomplete", logging.Error(err))
	}
}

// Clear forgets all registered resources without closing them.
func (rc *ResourceCleanup) Clear() {
	rc.resources = rc.resources[:0]
}

// CloseAll closes every registered resource and returns all close errors combined.
func (rc *ResourceCleanup) CloseAll() error {
	var errs error
	for i := len(rc.resources) - 1; i >= 0; i-- {
		r := rc.resources[i]
		if r.closer == nil {
			continue
		}
		if err := r.closer.Close(); err != nil {
			rc.logger.Debug("close failed", logging.String("resource", r.name), logging.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	rc.resources = rc.resources[:0]
	return errs
}

// Len returns the number of registered resources.
func (rc *ResourceCleanup) Len() int {
	return len(rc.resources)
}
