package i18n

import "net/http"

// Middleware injects a localizer for the configured language into every
// request context. Learner-visible strings (welcome and closing messages,
// recommendations) are resolved through it further down the stack.
func Middleware(lang string) func(http.Handler) http.Handler {
	loc := NewLocalizer(lang)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLocalizer(r.Context(), loc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
