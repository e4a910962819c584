package emit_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/pktgen/emit"
)

type failingEmitter struct{}

func (failingEmitter) Name() string { return "failing" }

func (failingEmitter) Emit(io.Writer, *emit.Document) error {
	return errors.New("Boom")
}

var _ = Describe("Writer", func() {
	var (
		dir string
		doc *emit.Document
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "pktgen-emit")
		Expect(err).To(Succeed())

		doc = exampleDocument()
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("writes every output", func() {
		outputs := []emit.Output{
			{Path: filepath.Join(dir, "packets.json"), Emitter: emit.JSON{}},
			{Path: filepath.Join(dir, "packets.tsv"), Emitter: emit.Table{}},
		}

		Expect(emit.NewWriter(false, nil).WriteAll(doc, outputs)).To(Succeed())

		Expect(filepath.Join(dir, "packets.json")).To(BeAnExistingFile())
		Expect(filepath.Join(dir, "packets.tsv")).To(BeAnExistingFile())
	})

	It("writes nothing when an emitter fails", func() {
		outputs := []emit.Output{
			{Path: filepath.Join(dir, "packets.json"), Emitter: emit.JSON{}},
			{Path: filepath.Join(dir, "broken"), Emitter: failingEmitter{}},
		}

		Expect(emit.NewWriter(false, nil).WriteAll(doc, outputs)).NotTo(Succeed())
		Expect(filepath.Join(dir, "packets.json")).NotTo(BeAnExistingFile())
	})

	It("only checks the schema without outputs", func() {
		Expect(emit.NewWriter(false, nil).WriteAll(doc, nil)).To(Succeed())

		entries, err := os.ReadDir(dir)
		Expect(err).To(Succeed())
		Expect(entries).To(BeEmpty())
	})

	Context("with lazy overwrite", func() {
		It("leaves unchanged files alone", func() {
			path := filepath.Join(dir, "packets.yaml")
			outputs := []emit.Output{{Path: path, Emitter: emit.YAML{}}}
			w := emit.NewWriter(true, nil)

			Expect(w.WriteAll(doc, outputs)).To(Succeed())

			past := time.Now().Add(-time.Hour).Truncate(time.Second)
			Expect(os.Chtimes(path, past, past)).To(Succeed())

			Expect(w.WriteAll(doc, outputs)).To(Succeed())

			info, err := os.Stat(path)
			Expect(err).To(Succeed())
			Expect(info.ModTime().Equal(past)).To(BeTrue())
			Expect(path + ".tmp").NotTo(BeAnExistingFile())
		})

		It("replaces changed files", func() {
			path := filepath.Join(dir, "packets.yaml")
			Expect(os.WriteFile(path, []byte("old"), 0o644)).To(Succeed())

			Expect(emit.NewWriter(true, nil).WriteAll(doc, []emit.Output{{Path: path, Emitter: emit.YAML{}}})).To(Succeed())

			content, err := os.ReadFile(path)
			Expect(err).To(Succeed())
			Expect(string(content)).To(HavePrefix("# " + emit.Disclaimer))
			Expect(path + ".tmp").NotTo(BeAnExistingFile())
		})
	})
})
