package hosting_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"stemsep/src/application/hosting"
	"stemsep/src/application/integration_test/dummy"
)

var _ = Describe("Uploader", func() {
	var (
		fileHost *dummy.FileHost
		uploader hosting.Uploader

		tempDir   string
		localPath string
	)

	BeforeEach(func() {
		fileHost = dummy.NewDummyFileHost()
		uploader = hosting.NewUploader(fileHost)

		var err error
		tempDir, err = os.MkdirTemp("", "uploader-test-*")
		Expect(err).NotTo(HaveOccurred())

		localPath = filepath.Join(tempDir, "jam session.wav")
		Expect(os.WriteFile(localPath, []byte("cool_jamz-wav"), os.ModePerm)).To(Succeed())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	It("publishes the file contents under its base name", func() {
		hostedURL, err := uploader.Upload(context.Background(), localPath)
		Expect(err).NotTo(HaveOccurred())

		contents, ok := fileHost.GetFile(hostedURL)
		Expect(ok).To(BeTrue())
		Expect(string(contents)).To(Equal("cool_jamz-wav"))
		Expect(hostedURL).To(ContainSubstring("jam session.wav"))
	})

	It("fails when the local file can't be read", func() {
		_, err := uploader.Upload(context.Background(), filepath.Join(tempDir, "nope.wav"))
		Expect(err).To(HaveOccurred())
	})

	It("fails when the host is down", func() {
		fileHost.Unavailable = true

		_, err := uploader.Upload(context.Background(), localPath)
		Expect(err).To(HaveOccurred())
	})
})
