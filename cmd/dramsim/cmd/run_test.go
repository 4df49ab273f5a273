package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/dramsim/config"
)

var _ = Describe("Commands", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	writeFile := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

		return path
	}

	It("should resolve parameter files and overrides", func() {
		flags := configFlags{
			system:    writeFile("system.ini", "NUM_CHANS=4 ; four channels\n"),
			overrides: "ROW_BUFFER_POLICY=close_page,TRANS_QUEUE_DEPTH=16",
		}

		cfg, err := flags.resolve()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.NumChans).To(Equal(4))
		Expect(cfg.RowBufferPolicy).To(Equal(config.ClosePage))
		Expect(cfg.TransQueueDepth).To(Equal(16))
	})

	It("should refuse an invalid configuration", func() {
		flags := configFlags{overrides: "NUM_CHANS=3"}

		_, err := flags.resolve()
		Expect(err).To(MatchError(ContainSubstring("invalid configuration")))
	})

	It("should run a trace and report the recording", func() {
		opts := &runFlags{
			trace: writeFile("k6_test.trc",
				"0x1000 P_MEM_RD 0\n"+
					"0x2000 P_MEM_WR 4\n"+
					"0x1000 P_MEM_RD 8\n"),
			record: filepath.Join(dir, "rec"),
			cache:  true,
			quiet:  true,

			cacheCores: 1,
		}

		out := new(bytes.Buffer)
		Expect(run(opts, out)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("records: 3"))
		Expect(out.String()).To(ContainSubstring("cache hits: 1"))
		Expect(out.String()).NotTo(ContainSubstring("Channel [0]"))

		out.Reset()
		Expect(report(context.Background(),
			filepath.Join(dir, "rec.sqlite3"), out)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Command:"))
		Expect(out.String()).To(ContainSubstring("Bandwidth (GB/s)"))
		Expect(out.String()).To(ContainSubstring("Channel 0 commands: ACT="))
	})

	It("should print epoch reports unless quiet", func() {
		opts := &runFlags{
			trace:  writeFile("trace.trc", "0x40 READ 0\n"),
			format: "mase",
		}

		out := new(bytes.Buffer)
		Expect(run(opts, out)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("==== Channel [0] ===="))
		Expect(out.String()).To(ContainSubstring("requests: 1"))
	})

	It("should fail on a trace it cannot parse", func() {
		opts := &runFlags{
			trace: writeFile("k7_bad.trc", "0x40 FOO 0\n"),
			quiet: true,
		}

		Expect(run(opts, new(bytes.Buffer))).
			To(MatchError(ContainSubstring("unknown command")))
	})

	It("should fail on a trace format it cannot infer", func() {
		opts := &runFlags{trace: writeFile("foo.trc", "")}

		Expect(run(opts, new(bytes.Buffer))).To(HaveOccurred())
	})
})
