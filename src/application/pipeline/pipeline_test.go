package pipeline_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"stemsep/src/application/audio"
	convertentity "stemsep/src/application/convert/entity"
	"stemsep/src/application/hosting"
	"stemsep/src/application/integration_test/dummy"
	"stemsep/src/application/pipeline"
	separationentity "stemsep/src/application/separation/entity"
)

type stubConverter struct {
	events     *[]string
	outputPath string
	err        error
}

func (s stubConverter) Convert(_ context.Context, inputPath string, _ convertentity.ProgressObserver) (convertentity.ConvertedAudio, error) {
	*s.events = append(*s.events, "convert")
	if s.err != nil {
		return convertentity.ConvertedAudio{}, s.err
	}

	contents, err := os.ReadFile(inputPath)
	if err != nil {
		return convertentity.ConvertedAudio{}, err
	}

	if err := os.WriteFile(s.outputPath, []byte(string(contents)+"-wav"), os.ModePerm); err != nil {
		return convertentity.ConvertedAudio{}, err
	}

	return convertentity.ConvertedAudio{Path: s.outputPath}, nil
}

type stubSeparator struct {
	events      *[]string
	receivedURL *string
	results     []separationentity.StemResult
	err         error
}

func (s stubSeparator) SeparateStems(_ context.Context, audioURL string, _ []string, _ separationentity.StatusObserver) ([]separationentity.StemResult, error) {
	*s.events = append(*s.events, "separate")
	*s.receivedURL = audioURL
	if s.err != nil {
		return nil, s.err
	}

	return s.results, nil
}

var _ = Describe("Orchestrator", func() {
	var (
		events      []string
		receivedURL string

		fileHost  *dummy.FileHost
		converter stubConverter
		separator stubSeparator

		tempDir string
		file    audio.File
	)

	stemResults := []separationentity.StemResult{
		{Name: "vocals", URLs: map[string]string{"wav": "https://cdn.audioshake.test/vocals.wav"}},
	}

	BeforeEach(func() {
		events = nil
		receivedURL = ""

		var err error
		tempDir, err = os.MkdirTemp("", "pipeline-test-*")
		Expect(err).NotTo(HaveOccurred())

		inputPath := filepath.Join(tempDir, "jam session.mp3")
		Expect(os.WriteFile(inputPath, []byte("cool_jamz"), os.ModePerm)).To(Succeed())

		file, err = audio.NewFile(inputPath)
		Expect(err).NotTo(HaveOccurred())

		fileHost = dummy.NewDummyFileHost()
		converter = stubConverter{
			events:     &events,
			outputPath: filepath.Join(tempDir, "jam session.wav"),
		}
		separator = stubSeparator{
			events:      &events,
			receivedURL: &receivedURL,
			results:     stemResults,
		}
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	run := func() ([]separationentity.StemResult, error) {
		orchestrator := pipeline.NewOrchestrator(converter, hosting.NewUploader(fileHost), separator, []string{"vocals"})
		return orchestrator.Run(context.Background(), file, pipeline.Observers{})
	}

	Describe("Happy path", func() {
		It("runs convert then upload then separate and returns the stems", func() {
			results, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(Equal(stemResults))
			Expect(events).To(Equal([]string{"convert", "separate"}))

			By("handing the separator the URL of the uploaded conversion")
			contents, ok := fileHost.GetFile(receivedURL)
			Expect(ok).To(BeTrue())
			Expect(string(contents)).To(Equal("cool_jamz-wav"))
		})
	})

	Describe("Conversion failure", func() {
		BeforeEach(func() {
			converter.err = dummy.NetworkFailure
		})

		It("aborts before uploading anything", func() {
			_, err := run()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Conversion stage failed"))
			Expect(fileHost.State).To(BeEmpty())
			Expect(events).To(Equal([]string{"convert"}))
		})
	})

	Describe("Upload failure", func() {
		BeforeEach(func() {
			fileHost.Unavailable = true
		})

		It("aborts before requesting separation", func() {
			_, err := run()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Upload stage failed"))
			Expect(events).To(Equal([]string{"convert"}))
		})
	})

	Describe("Separation failure", func() {
		BeforeEach(func() {
			separator.err = dummy.NetworkFailure
		})

		It("fails the run after the earlier stages ran", func() {
			_, err := run()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Separation stage failed"))
			Expect(events).To(Equal([]string{"convert", "separate"}))
		})
	})
})
