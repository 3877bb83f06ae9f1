package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"stemsep/src/application/audio"
	convertentity "stemsep/src/application/convert/entity"
	"stemsep/src/application/convert/ffmpeg"
	"stemsep/src/application/executor"
	"stemsep/src/application/hosting"
	hostingstore "stemsep/src/application/hosting/store"
	"stemsep/src/application/pipeline"
	"stemsep/src/application/separation/audioshake"
	separationentity "stemsep/src/application/separation/entity"
)

const convertedDirName = "converted"

func runPipeline(cmd *cobra.Command, path string) error {
	audioFile, err := validateInputFile(path)
	if err != nil {
		return err
	}

	apiKey := os.Getenv("AUDIOSHAKE_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("AUDIOSHAKE_API_KEY is not set")
	}

	orchestrator := newOrchestrator(apiKey)

	progress := newProgressLine(cmd.ErrOrStderr())
	observers := pipeline.Observers{
		ConversionProgress: convertentity.ProgressObserverFunc(func(percent float64) {
			progress.Update(fmt.Sprintf("Converting: %3.0f%%", percent))
		}),
		SeparationStatus: separationentity.StatusObserverFunc(func(status separationentity.TaskStatus) {
			progress.Update(fmt.Sprintf("Separation status: %s", status))
		}),
	}

	stems, err := orchestrator.Run(context.Background(), audioFile, observers)
	progress.Finish()
	if err != nil {
		return err
	}

	renderStems(cmd, stems)

	return nil
}

func validateInputFile(path string) (audio.File, error) {
	// open rather than stat so an unreadable file fails here instead
	// of partway into the conversion
	file, err := os.Open(path)
	if err != nil {
		return audio.File{}, fmt.Errorf("File not found: %s", path)
	}
	_ = file.Close()

	if !audio.IsSupportedFile(path) {
		extensions := audio.SupportedExtensions()
		sort.Strings(extensions)
		return audio.File{}, fmt.Errorf("Unsupported file type, supported extensions are: %s", strings.Join(extensions, ", "))
	}

	return audio.NewFile(path)
}

func newOrchestrator(apiKey string) pipeline.Orchestrator {
	binaryExecutor := executor.BinaryFileExecutor{}

	converter, err := ffmpeg.NewConverter(
		convertedDirName,
		envOrDefault("FFMPEG_BIN_PATH", "ffmpeg"),
		envOrDefault("FFPROBE_BIN_PATH", "ffprobe"),
		binaryExecutor,
	)
	if err != nil {
		// only fails when the output dir can't be resolved to an
		// absolute path, which means the cwd itself is gone
		panic(err)
	}

	uploader := hosting.NewUploader(hostingstore.NewZeroXZeroHost("", nil))
	separator := audioshake.NewClient(apiKey, audioshake.Config{}, nil, nil)

	return pipeline.NewOrchestrator(converter, uploader, separator, audioshake.DefaultStems)
}

func renderStems(cmd *cobra.Command, stems []separationentity.StemResult) {
	out := cmd.OutOrStdout()

	for _, stem := range stems {
		fmt.Fprintf(out, "%s:\n", stem.Name)

		formats := make([]string, 0, len(stem.URLs))
		for format := range stem.URLs {
			formats = append(formats, format)
		}
		sort.Strings(formats)

		for _, format := range formats {
			fmt.Fprintf(out, "  %s: %s\n", format, stem.URLs[format])
		}
	}
}

func envOrDefault(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}
