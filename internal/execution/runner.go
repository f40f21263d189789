package execution

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"rtp/internal/command"
	"rtp/internal/config"
	"rtp/internal/domain"
)

// Runner executes Ruby test commands
type Runner struct {
	config  *config.Config
	builder *command.Builder
}

// NewRunner creates a new Runner
func NewRunner(cfg *config.Config, builder *command.Builder) *Runner {
	return &Runner{config: cfg, builder: builder}
}

// WorkerEnv returns the variables added to the environment of a test
// process: the project .env, then the worker's database and number.
func (r *Runner) WorkerEnv(workerID int) []string {
	var env []string

	vars, err := godotenv.Read(r.config.GetEnvPath())
	if err == nil {
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+vars[k])
		}
	} else if !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", r.config.GetEnvPath()).Msg("Failed to read .env")
	}

	if workerID > 0 {
		env = append(env,
			fmt.Sprintf("DB_DATABASE=%s", r.config.GetDatabaseName(workerID)),
			fmt.Sprintf("TEST_ENV_NUMBER=%d", workerID),
		)
	}
	return env
}

// RunFile executes a whole test file on the given worker
func (r *Runner) RunFile(ctx context.Context, testPath string, workerID int) domain.TestResult {
	cmd := r.builder.File(testPath)
	cmd.Env = append(cmd.Env, r.WorkerEnv(workerID)...)
	return r.Run(ctx, cmd, testPath, io.Discard)
}

// Run executes cmd, copying its combined output to w as it is produced.
func (r *Runner) Run(ctx context.Context, cmd command.Command, testPath string, w io.Writer) domain.TestResult {
	if len(cmd.Args) == 0 {
		return domain.TestResult{TestPath: testPath, Error: fmt.Errorf("empty command")}
	}

	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Env = append(os.Environ(), cmd.Env...)
	c.Dir = cmd.Dir

	if w == nil {
		w = io.Discard
	}
	var output bytes.Buffer
	out := io.MultiWriter(&output, w)
	c.Stdout = out
	c.Stderr = out

	log.Debug().Str("cmd", cmd.String()).Str("dir", cmd.Dir).Msg("Running tests")
	start := time.Now()
	err := c.Run()

	return domain.TestResult{
		TestPath: testPath,
		Command:  cmd.String(),
		Success:  err == nil,
		Output:   output.String(),
		Error:    err,
		Duration: time.Since(start),
	}
}
