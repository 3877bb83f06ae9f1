package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"

	"stemsep/src/application/convert/entity"
	"stemsep/src/application/executor"
	"stemsep/src/lib/cerr"
)

var _ entity.Converter = Converter{}

// fixed target profile: 24-bit PCM, stereo, 44.1kHz
var encodingArgs = []string{"-acodec", "pcm_s24le", "-ar", "44100", "-ac", "2"}

func NewConverter(outputDirStr string, ffmpegBinPath string, ffprobeBinPath string, commandExecutor executor.Executor) (Converter, error) {
	outputDir, err := filepath.Abs(outputDirStr)
	if err != nil {
		return Converter{}, cerr.Field("output_dir", outputDirStr).
			Wrap(err).Error("Failed to convert output dir to absolute format")
	}

	return Converter{
		outputDir:       outputDir,
		ffmpegBinPath:   ffmpegBinPath,
		ffprobeBinPath:  ffprobeBinPath,
		commandExecutor: commandExecutor,
	}, nil
}

type Converter struct {
	outputDir       string
	ffmpegBinPath   string
	ffprobeBinPath  string
	commandExecutor executor.Executor
}

func (c Converter) Convert(ctx context.Context, inputPath string, observer entity.ProgressObserver) (entity.ConvertedAudio, error) {
	absInputPath, err := filepath.Abs(inputPath)
	if err != nil {
		return entity.ConvertedAudio{}, cerr.Field("input_path", inputPath).
			Wrap(err).Error("Cannot convert input path to absolute format")
	}

	errctx := cerr.Field("input_path", absInputPath).Field("output_dir", c.outputDir)

	// conversion is a lengthy process, if we want to halt now is the time
	if ctx.Err() != nil {
		return entity.ConvertedAudio{}, errctx.Wrap(ctx.Err()).Error("Context cancelled before conversion could happen")
	}

	if err := os.MkdirAll(c.outputDir, os.ModePerm); err != nil {
		return entity.ConvertedAudio{}, errctx.Wrap(err).Error("Failed to create the converted output directory")
	}

	fileName := filepath.Base(absInputPath)
	baseName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	outputPath := filepath.Join(c.outputDir, baseName+".wav")

	totalSeconds := c.probeDuration(absInputPath)

	if err := c.runFFmpeg(absInputPath, outputPath, totalSeconds, observer); err != nil {
		return entity.ConvertedAudio{}, errctx.Field("output_path", outputPath).
			Wrap(err).Error("Failed to convert the audio file")
	}

	return entity.ConvertedAudio{Path: outputPath}, nil
}

// probeDuration asks ffprobe for the input length in seconds so that
// progress can be reported as a percentage. Duration is advisory only,
// a probe failure doesn't stop the conversion.
func (c Converter) probeDuration(inputPath string) float64 {
	cmd := c.commandExecutor.Command(
		c.ffprobeBinPath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		log.WithField("input_path", inputPath).Debug("ffprobe failed, converting without progress")
		return 0
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		log.WithField("ffprobe_output", string(output)).Debug("Unparseable ffprobe duration")
		return 0
	}

	return seconds
}

func (c Converter) runFFmpeg(inputPath string, outputPath string, totalSeconds float64, observer entity.ProgressObserver) error {
	logger := log.WithFields(log.Fields{
		"input_path":  inputPath,
		"output_path": outputPath,
	})

	args := []string{"-y", "-i", inputPath}
	args = append(args, encodingArgs...)
	args = append(args, "-nostats", "-loglevel", "error", "-progress", "pipe:1", outputPath)

	cmd := c.commandExecutor.Command(c.ffmpegBinPath, args...)

	var stderr bytes.Buffer
	cmd.SetStderr(&stderr)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return cerr.Wrap(err).Error("Failed to open a pipe to ffmpeg progress output")
	}

	logger.Info("Running ffmpeg command")
	if err := cmd.Start(); err != nil {
		return cerr.Wrap(err).Error("Failed to start ffmpeg")
	}

	c.relayProgress(stdout, totalSeconds, observer)

	if err := cmd.Wait(); err != nil {
		errMsg := fmt.Sprintf("Error occurred while running ffmpeg - output: %s", stderr.String())
		return cerr.Wrap(err).Error(errMsg)
	}

	logger.Info("Finished ffmpeg command")

	return nil
}

// relayProgress reads ffmpeg's key=value progress stream and surfaces
// it as a non-decreasing percentage.
func (c Converter) relayProgress(progressStream io.Reader, totalSeconds float64, observer entity.ProgressObserver) {
	lastPercent := float64(0)

	scanner := bufio.NewScanner(progressStream)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if observer == nil {
			continue
		}

		if line == "progress=end" {
			lastPercent = 100
			observer.OnProgress(lastPercent)
			continue
		}

		if totalSeconds <= 0 {
			continue
		}

		// out_time_ms is in microseconds despite the name, an old
		// ffmpeg quirk
		value, found := cutPrefix(line, "out_time_ms=")
		if !found {
			continue
		}

		microseconds, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}

		percent := microseconds / 1e6 / totalSeconds * 100
		if percent > 100 {
			percent = 100
		}

		if percent > lastPercent {
			lastPercent = percent
			observer.OnProgress(percent)
		}
	}
}

func cutPrefix(s string, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}

	return strings.TrimPrefix(s, prefix), true
}
