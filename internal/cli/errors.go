package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

type errorBody struct {
	Error string `json:"error"`
}

// WriteError reports err on w as "Error: <msg>" or, in JSON mode, as
// {"error":"<msg>"}, and returns the process exit code.
func WriteError(w io.Writer, err error, jsonMode bool) int {
	if err == nil {
		return ExitOK
	}
	code := ExitFailure
	if errors.Is(err, context.Canceled) {
		code = ExitInterrupted
	}
	if jsonMode {
		data, mErr := json.Marshal(errorBody{Error: err.Error()})
		if mErr != nil {
			data = []byte(`{"error":"unknown error"}`)
		}
		fmt.Fprintln(w, string(data))
		return code
	}
	fmt.Fprintf(w, "%s %s\n", downColor.Sprint("Error:"), err.Error())
	return code
}
