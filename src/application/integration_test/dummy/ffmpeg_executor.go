package dummy

import (
	"io"
	"os"
	"strings"

	"stemsep/src/application/executor"
)

var _ executor.Executor = &FFmpegExecutor{}

// FFmpegExecutor fakes both the ffprobe duration probe and the ffmpeg
// conversion run. The "converted" output file is the input contents
// with a -wav suffix so tests can watch data flow through the
// pipeline.
func NewDummyFFmpegExecutor() *FFmpegExecutor {
	return &FFmpegExecutor{
		Unavailable: false,
	}
}

type FFmpegExecutor struct {
	Unavailable bool
}

func (f *FFmpegExecutor) Command(name string, arg ...string) executor.Command {
	if strings.Contains(name, "ffprobe") {
		return &probeCommand{Unavailable: f.Unavailable, Args: arg}
	}

	return &convertCommand{Unavailable: f.Unavailable, Args: arg}
}

type probeCommand struct {
	Unavailable bool
	Args        []string
}

func (p *probeCommand) SetDir(_ string)                    {}
func (p *probeCommand) SetStderr(_ io.Writer)              {}
func (p *probeCommand) StdoutPipe() (io.ReadCloser, error) { return nil, UnexpectedInput }
func (p *probeCommand) Start() error                       { return UnexpectedInput }
func (p *probeCommand) Wait() error                        { return UnexpectedInput }

func (p *probeCommand) CombinedOutput() ([]byte, error) {
	if p.Unavailable {
		return nil, NetworkFailure
	}

	return []byte("180.000000\n"), nil
}

type convertCommand struct {
	Unavailable bool
	Args        []string
	stderr      io.Writer
}

func (c *convertCommand) SetDir(_ string) {}

func (c *convertCommand) SetStderr(w io.Writer) {
	c.stderr = w
}

func (c *convertCommand) StdoutPipe() (io.ReadCloser, error) {
	progress := "out_time_ms=45000000\nout_time_ms=90000000\nout_time_ms=180000000\nprogress=end\n"
	return io.NopCloser(strings.NewReader(progress)), nil
}

func (c *convertCommand) Start() error {
	return nil
}

func (c *convertCommand) Wait() error {
	if c.Unavailable {
		if c.stderr != nil {
			_, _ = c.stderr.Write([]byte("conversion engine is not installed"))
		}
		return NetworkFailure
	}

	inputPath, err := getOptionValue(c.Args, "-i")
	if err != nil {
		return err
	}

	outputPath := c.Args[len(c.Args)-1]

	contents, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}

	return os.WriteFile(outputPath, []byte(string(contents)+"-wav"), os.ModePerm)
}

func (c *convertCommand) CombinedOutput() ([]byte, error) {
	return nil, UnexpectedInput
}

func getOptionValue(args []string, key string) (string, error) {
	for i, arg := range args {
		if arg == key && i+1 < len(args) {
			return args[i+1], nil
		}
	}

	return "", UnexpectedInput
}
