package tools

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// goRunnerAllowedImports is the whitelist for interpreted snippets.
// Filesystem, network, and process packages are deliberately absent.
var goRunnerAllowedImports = map[string]bool{
	"bytes":         true,
	"encoding/json": true,
	"errors":        true,
	"fmt":           true,
	"math":          true,
	"math/rand":     true,
	"regexp":        true,
	"sort":          true,
	"strconv":       true,
	"strings":       true,
	"time":          true,
	"unicode":       true,
}

// GoRunner executes Go snippets in a yaegi interpreter with captured
// output. Like the calculator it is registered for direct invocation
// only; the automatic research loop never selects it.
type GoRunner struct{}

func NewGoRunner() GoRunner {
	return GoRunner{}
}

func (r GoRunner) Run(ctx context.Context, code string) ([]Result, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, nil
	}

	if err := validateSnippetImports(trimmed); err != nil {
		return []Result{{"error": err.Error()}}, nil
	}

	type runOutcome struct {
		stdout string
		stderr string
		err    error
	}
	outcome := make(chan runOutcome, 1)
	go func() {
		var stdout, stderr bytes.Buffer
		i := interp.New(interp.Options{Stdout: &stdout, Stderr: &stderr})
		if err := i.Use(stdlib.Symbols); err != nil {
			outcome <- runOutcome{err: fmt.Errorf("load interpreter stdlib: %w", err)}
			return
		}
		_, err := i.Eval(trimmed)
		outcome <- runOutcome{stdout: stdout.String(), stderr: stderr.String(), err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-outcome:
		if result.err != nil {
			return []Result{{"error": fmt.Sprintf("execution failed: %v", result.err)}}, nil
		}
		output := result.stdout
		if strings.TrimSpace(output) == "" {
			output = "Code executed successfully (no output)"
		}
		record := Result{
			"output":      output,
			"source_type": "goexec",
		}
		if strings.TrimSpace(result.stderr) != "" {
			record["errors"] = result.stderr
		}
		return []Result{record}, nil
	}
}

func validateSnippetImports(code string) error {
	var forbidden []string

	inImportBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inImportBlock = true
			continue
		case inImportBlock && strings.HasPrefix(trimmed, ")"):
			inImportBlock = false
			continue
		}

		var pkg string
		if inImportBlock {
			pkg = trimmed
		} else if strings.HasPrefix(trimmed, "import ") {
			pkg = strings.TrimPrefix(trimmed, "import ")
		} else {
			continue
		}

		// Drop an import alias if present, then the quotes.
		fields := strings.Fields(pkg)
		if len(fields) == 0 {
			continue
		}
		pkg = strings.Trim(fields[len(fields)-1], `"`)
		if pkg == "" {
			continue
		}
		if !goRunnerAllowedImports[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}

	if len(forbidden) > 0 {
		return fmt.Errorf("code imports forbidden packages: %s", strings.Join(forbidden, ", "))
	}
	return nil
}
