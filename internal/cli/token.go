package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	gh "ghasexport/internal/github"

	"golang.org/x/term"
)

// tokenPrompt asks the user for a token; it returns "" when it cannot ask.
type tokenPrompt func() (string, error)

// resolveToken tries the non-interactive sources first and falls back to
// prompt. An empty token with a nil error means nothing yielded one.
func resolveToken(ctx context.Context, provided, githubURL string, prompt tokenPrompt) (string, gh.AuthTokenSource, error) {
	token, source, err := gh.ResolveAuthToken(ctx, provided, gh.HostFromBaseURL(githubURL))
	if err != nil || token != "" {
		return token, source, err
	}
	if prompt == nil {
		return "", "", nil
	}
	token, err = prompt()
	if err != nil {
		return "", "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(token), "prompt", nil
}

// terminalPrompt reads a token without echo when in is a terminal.
func terminalPrompt(in *os.File, out io.Writer) tokenPrompt {
	return func() (string, error) {
		fd := int(in.Fd())
		if !term.IsTerminal(fd) {
			return "", nil
		}
		fmt.Fprint(out, "GitHub token: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
