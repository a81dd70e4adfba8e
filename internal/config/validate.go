package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/user/theo/internal/scheduler"
	"github.com/user/theo/internal/state"
	"github.com/user/theo/internal/types"
)

var (
	storeBackends = []string{state.BackendFile, state.BackendSQLite, state.BackendRedis, state.BackendMemory}
	idFormats     = []string{types.IDFormatTimestamp, types.IDFormatUUID}
	logLevels     = []string{"debug", "info", "warn", "error"}
)

// FieldError ties a validation failure to the setting that caused it.
type FieldError struct {
	Key string
	Err error
}

func (e *FieldError) Error() string { return e.Key + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

// Validate reports every setting that would make the CLI or daemon fail or
// silently fall back. Empty values mean "use the default" and pass. The
// result joins one *FieldError per problem.
func (c *Config) Validate() error {
	var errs []error
	fail := func(key string, err error) {
		errs = append(errs, &FieldError{Key: key, Err: err})
	}
	oneOf := func(key, value string, allowed []string) {
		if value != "" && !slices.Contains(allowed, value) {
			fail(key, fmt.Errorf("%q is not one of %s", value, strings.Join(allowed, ", ")))
		}
	}
	oneOf("store.backend", c.Store.Backend, storeBackends)
	oneOf("id_format", c.IDFormat, idFormats)
	oneOf("log_level", strings.ToLower(c.LogLevel), logLevels)

	if c.Analytics.Timezone != "" {
		if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
			fail("analytics.timezone", err)
		}
	}
	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		fail("http.listen", errors.New("required when http.enabled is true"))
	}

	for i, d := range c.Digests {
		if d.Schedule != "" {
			if err := scheduler.Validate(d.Schedule); err != nil {
				fail(fmt.Sprintf("digests.%d.schedule", i), err)
			}
		}
		if d.Enabled && d.Target == "" {
			fail(fmt.Sprintf("digests.%d.target", i), errors.New("required for an enabled digest"))
		}
	}
	return errors.Join(errs...)
}

// errorsUnder keeps the failures reported for key or any setting below it.
func errorsUnder(err error, key string) error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return nil
	}
	var kept []error
	for _, e := range joined.Unwrap() {
		var fe *FieldError
		if errors.As(e, &fe) && (fe.Key == key || strings.HasPrefix(fe.Key, key+".")) {
			kept = append(kept, e)
		}
	}
	return errors.Join(kept...)
}
