package pipeline

import (
	"context"

	"github.com/apex/log"

	"stemsep/src/application/audio"
	convertentity "stemsep/src/application/convert/entity"
	"stemsep/src/application/hosting"
	separationentity "stemsep/src/application/separation/entity"
	"stemsep/src/lib/cerr"
)

// Stage labels attached to every failure so the operator can tell
// which part of the run aborted.
const (
	ConvertStage  = "convert"
	UploadStage   = "upload"
	SeparateStage = "separate"
)

// Observers carries the advisory progress sinks for one run. Any of
// them may be nil.
type Observers struct {
	ConversionProgress convertentity.ProgressObserver
	SeparationStatus   separationentity.StatusObserver
}

func NewOrchestrator(converter convertentity.Converter, uploader hosting.Uploader, separator separationentity.Separator, stems []string) Orchestrator {
	return Orchestrator{
		converter: converter,
		uploader:  uploader,
		separator: separator,
		stems:     stems,
	}
}

// Orchestrator runs the three pipeline stages strictly in sequence:
// convert, upload, separate. Each stage must fully complete before the
// next begins; the first failure aborts the whole run. Nothing is
// rolled back, converted and uploaded files are left in place for
// forensic inspection.
type Orchestrator struct {
	converter convertentity.Converter
	uploader  hosting.Uploader
	separator separationentity.Separator
	stems     []string
}

func (o Orchestrator) Run(ctx context.Context, file audio.File, observers Observers) ([]separationentity.StemResult, error) {
	logger := log.WithFields(log.Fields{
		"input_path": file.Path,
		"size":       file.Size,
	})

	logger.Info("Converting the audio file to the canonical WAV profile")
	converted, err := o.converter.Convert(ctx, file.Path, observers.ConversionProgress)
	if err != nil {
		return nil, cerr.Field("stage", ConvertStage).Wrap(err).Error("Conversion stage failed")
	}

	logger.WithField("converted_path", converted.Path).Info("Uploading the converted file to a public host")
	hostedURL, err := o.uploader.Upload(ctx, converted.Path)
	if err != nil {
		return nil, cerr.Field("stage", UploadStage).Wrap(err).Error("Upload stage failed")
	}

	logger.WithField("hosted_url", hostedURL).Info("Requesting stem separation")
	stems, err := o.separator.SeparateStems(ctx, hostedURL, o.stems, observers.SeparationStatus)
	if err != nil {
		return nil, cerr.Field("stage", SeparateStage).Wrap(err).Error("Separation stage failed")
	}

	logger.WithField("stem_count", len(stems)).Info("Pipeline run complete")

	return stems, nil
}
