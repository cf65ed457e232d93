package context

import (
	"context"

	"github.com/mkrupp/vcloset/internal/domain"
)

const contextKeySubject = contextKey("subject")

// SubjectFromContext returns the authenticated subject stored by the authorizing middleware.
func SubjectFromContext(ctx context.Context) (domain.Subject, bool) {
	subject, ok := ctx.Value(contextKeySubject).(domain.Subject)

	return subject, ok
}

// WithSubject returns a context carrying the authenticated subject.
func WithSubject(ctx context.Context, subject domain.Subject) context.Context {
	return context.WithValue(ctx, contextKeySubject, subject)
}
