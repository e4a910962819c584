package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/luma/pktgen/emit"
	"github.com/luma/pktgen/model"
)

const example = "../schema/testdata/example.def"

var _ = Describe("generate", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "pktgen-cmd")
		Expect(err).To(Succeed())

		jsonPath, yamlPath, tablePath = "", "", ""
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	run := func(args ...string) error {
		RootCmd.SetArgs(args)
		RootCmd.SetOut(bytes.NewBuffer(nil))
		RootCmd.SetErr(bytes.NewBuffer(nil))

		return RootCmd.ExecuteContext(context.Background())
	}

	It("writes the requested outputs", func() {
		jsonOut := filepath.Join(dir, "packets.json")
		tableOut := filepath.Join(dir, "packets.tsv")

		Expect(run("generate", "--json", jsonOut, "--table", tableOut, "-B", example)).To(Succeed())

		content, err := os.ReadFile(jsonOut)
		Expect(err).To(Succeed())
		Expect(gjson.GetBytes(content, "fold_bool").Bool()).To(BeFalse())
		Expect(gjson.GetBytes(content, "packets.#").Int()).To(Equal(int64(10)))

		Expect(tableOut).To(BeAnExistingFile())
		Expect(filepath.Join(dir, "packets.yaml")).NotTo(BeAnExistingFile())
	})

	It("validates a schema without writing outputs", func() {
		Expect(run("generate", example)).To(Succeed())

		entries, err := os.ReadDir(dir)
		Expect(err).To(Succeed())
		Expect(entries).To(BeEmpty())
	})

	It("fails on a missing schema", func() {
		Expect(run("generate", "--json", filepath.Join(dir, "out.json"), filepath.Join(dir, "missing.def"))).NotTo(Succeed())
		Expect(filepath.Join(dir, "out.json")).NotTo(BeAnExistingFile())
	})
})

var _ = Describe("serve routes", func() {
	var router http.Handler

	BeforeEach(func() {
		def, err := parseSchemas(model.DefaultConfig(), zap.NewNop(), []string{example})
		Expect(err).To(Succeed())

		doc, err := emit.NewDocument(def, []string{example})
		Expect(err).To(Succeed())

		r := setupRouter(false, zap.NewNop())
		routeDocument(r, doc)
		router = r
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	It("answers pings", func() {
		rec := get("/ping")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("pong"))
	})

	It("serves the model", func() {
		rec := get("/packets")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(gjson.Get(rec.Body.String(), "functional_capability").String()).To(Equal("cma culture16"))
	})

	It("serves one packet by name", func() {
		rec := get("/packets/packet_city_info")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(gjson.Get(rec.Body.String(), "id").Int()).To(Equal(int64(31)))

		Expect(get("/packets/PACKET_NOPE").Code).To(Equal(http.StatusNotFound))
	})

	It("serves the table", func() {
		rec := get("/table")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("31\tPACKET_CITY_INFO\t1"))
	})
})
