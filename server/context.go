package server

import "context"

type ctxKey string

// ctxKeyUser carries the authenticated username through a request.
const ctxKeyUser ctxKey = "triage.user"

func contextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeyUser, subject)
}

// subjectFromContext returns the authenticated username, if any.
func subjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(ctxKeyUser).(string)
	return subject, ok
}
