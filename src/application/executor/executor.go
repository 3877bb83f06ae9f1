package executor

import (
	"io"
	"os/exec"
)

var _ Executor = BinaryFileExecutor{}

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Executor
type Executor interface {
	Command(name string, arg ...string) Command
}

//counterfeiter:generate . Command
type Command interface {
	SetDir(dir string)
	SetStderr(w io.Writer)
	StdoutPipe() (io.ReadCloser, error)
	Start() error
	Wait() error
	CombinedOutput() ([]byte, error)
}

// the only reason this is here is to create an interface for testing
type BinaryFileExecutor struct{}

func (b BinaryFileExecutor) Command(name string, arg ...string) Command {
	return &binaryFileCommand{
		cmd: exec.Command(name, arg...),
	}
}

type binaryFileCommand struct {
	cmd *exec.Cmd
}

func (b *binaryFileCommand) SetDir(dir string) {
	b.cmd.Dir = dir
}

func (b *binaryFileCommand) SetStderr(w io.Writer) {
	b.cmd.Stderr = w
}

func (b *binaryFileCommand) StdoutPipe() (io.ReadCloser, error) {
	return b.cmd.StdoutPipe()
}

func (b *binaryFileCommand) Start() error {
	return b.cmd.Start()
}

func (b *binaryFileCommand) Wait() error {
	return b.cmd.Wait()
}

func (b *binaryFileCommand) CombinedOutput() ([]byte, error) {
	return b.cmd.CombinedOutput()
}
