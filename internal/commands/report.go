package commands

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"tasker/internal/apierr"
	"tasker/internal/exitcode"
	"tasker/internal/store"
)

// usageError is a problem with the command line or with a name it refers to.
type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// usage prints a usage error and returns exitcode.UserError.
func usage(errOut io.Writer, format string, args ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}

// fail prints err and returns its exit code.
func fail(errOut io.Writer, err error) int {
	if errors.Is(err, apierr.ErrSessionExpired) {
		fmt.Fprintln(errOut, "error: session expired (run: tasker login)")
		return exitcode.SessionExpired
	}
	fmt.Fprintf(errOut, "error: %s\n", describe(err))

	var ue usageError
	if errors.As(err, &ue) {
		return exitcode.UserError
	}
	return exitcode.FromError(err)
}

// settle downgrades a failed reconcile to a warning. The mutation itself
// was applied.
func settle(errOut io.Writer, err error) error {
	var rec *store.ReconcileError
	if errors.As(err, &rec) {
		fmt.Fprintf(errOut, "warning: %v\n", rec)
		return nil
	}
	return err
}

func describe(err error) string {
	var rec *store.ReconcileError
	if errors.As(err, &rec) {
		return err.Error()
	}

	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case apierr.KindAuthentication:
		return "invalid credentials"
	case apierr.KindTransient:
		return "backend error: " + err.Error()
	case apierr.KindValidation:
		if apiErr.Status == http.StatusNotFound {
			return "not found"
		}
		if fields := apiErr.Fields(); fields != nil {
			return "rejected: " + joinFields(fields)
		}
		if apiErr.Status == 0 && apiErr.Err != nil {
			return apiErr.Err.Error()
		}
	}
	return err.Error()
}

// joinFields renders {"title": ["This field is required."]} as
// "title: This field is required.".
func joinFields(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		msg := strings.Join(fields[name], " ")
		if name == "detail" || name == "non_field_errors" {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, name+": "+msg)
	}
	return strings.Join(parts, "; ")
}
