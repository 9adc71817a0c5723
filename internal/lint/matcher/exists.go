package matcher

import (
	"context"

	"github.com/conduit-lang/rulelint/internal/lint/rule"
)

// Candidate is one file offered to an existence check. Content is ignored
// for path rules.
type Candidate struct {
	Path    string
	Content string
}

// Exists reports whether r matches anywhere in files. It stops at the first
// matching file. Files whose scan times out are skipped and returned as
// recoverable errors; only context cancellation is returned as err.
func Exists(ctx context.Context, r *rule.Rule, files []Candidate) (found bool, skipped []error, err error) {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return false, skipped, err
		}

		var ok bool
		var scanErr error
		if r.Kind == rule.KindPath {
			var m *Match
			m, scanErr = ScanPath(r, f.Path)
			ok = m != nil
		} else {
			ok, scanErr = Contains(r, f.Path, f.Content)
		}
		if scanErr != nil {
			skipped = append(skipped, scanErr)
			continue
		}
		if ok {
			return true, skipped, nil
		}
	}
	return false, skipped, nil
}
