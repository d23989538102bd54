package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// printError writes err to w, followed by any values attached to it so that
// the offending flag value reaches the user.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s\n", errorText(err))
}

func errorText(err error) string {
	values := goerr.Values(err)
	if len(values) == 0 {
		return err.Error()
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, values[k])
	}
	return err.Error() + " (" + strings.Join(parts, ", ") + ")"
}
