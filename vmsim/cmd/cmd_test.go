package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
)

var _ = Describe("vmsim", func() {
	var (
		dir    string
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	)

	execute := func(stdin string, args ...string) error {
		stdout.Reset()
		stderr.Reset()

		root := NewRootCmd()
		root.SetArgs(args)
		root.SetIn(strings.NewReader(stdin))
		root.SetOut(stdout)
		root.SetErr(stderr)

		return root.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)
	})

	Context("mkswap and inspect", func() {
		It("should create an empty swap file", func() {
			path := filepath.Join(dir, "swap.bin")

			Expect(execute("", "mkswap", path,
				"--pages", "4", "--page-size", "16")).To(Succeed())

			info, err := os.Stat(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Size()).To(Equal(int64(16 + 4*8)))

			Expect(execute("", "inspect", path)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("Pages:       4"))
			Expect(stdout.String()).To(ContainSubstring("Page size:   16"))
			Expect(stdout.String()).To(ContainSubstring("Allocated:   0"))
		})

		It("should not overwrite a file unless forced", func() {
			path := filepath.Join(dir, "swap.bin")
			Expect(os.WriteFile(path, []byte("keep"), 0o600)).To(Succeed())

			Expect(execute("", "mkswap", path)).NotTo(Succeed())

			Expect(execute("", "mkswap", path, "--force",
				"--pages", "2", "--page-size", "8")).To(Succeed())
			Expect(execute("", "inspect", path)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("Pages:       2"))
		})

		It("should keep an existing file when a forced format fails", func() {
			path := filepath.Join(dir, "swap.bin")
			Expect(os.WriteFile(path, []byte("keep"), 0o600)).To(Succeed())

			err := execute("", "mkswap", path, "--force", "--page-size", "0")

			Expect(err).To(MatchError(vm.ErrConfiguration))
			Expect(os.ReadFile(path)).To(Equal([]byte("keep")))
		})

		It("should remove a new file when the format fails", func() {
			path := filepath.Join(dir, "swap.bin")

			err := execute("", "mkswap", path, "--page-size", "0")

			Expect(err).To(MatchError(vm.ErrConfiguration))
			_, err = os.Stat(path)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("should cut a longer file down to the header when forced", func() {
			path := filepath.Join(dir, "swap.bin")
			Expect(os.WriteFile(path, make([]byte, 1024), 0o600)).To(Succeed())

			Expect(execute("", "mkswap", path, "--force",
				"--pages", "2", "--page-size", "8")).To(Succeed())

			info, err := os.Stat(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Size()).To(Equal(int64(16 + 2*8)))
		})

		It("should reject a truncated swap file", func() {
			path := filepath.Join(dir, "swap.bin")
			Expect(os.WriteFile(path, []byte{1, 2, 3}, 0o600)).To(Succeed())

			err := execute("", "inspect", path)

			Expect(err).To(MatchError(vm.ErrConfiguration))
		})
	})

	Context("run", func() {
		It("should run the thrashing scenario on an in-memory swap", func() {
			err := execute("w 0x0 0xFF\nr 0x100\nr 0x0\n", "run",
				"--address-space", "1024",
				"--page-size", "256",
				"--frames", "1")

			Expect(err).NotTo(HaveOccurred())
			Expect(stdout.String()).To(HavePrefix(
				"0x0100 => 0x0\n0x0000 => 0xFF\n"))
			Expect(stdout.String()).To(ContainSubstring("Flushes:   1"))
			Expect(stdout.String()).To(ContainSubstring("Evictions: 2"))
		})

		It("should persist pages in a swap file across runs", func() {
			path := filepath.Join(dir, "swap.bin")
			Expect(execute("", "mkswap", path,
				"--pages", "4", "--page-size", "256")).To(Succeed())

			args := []string{"run", "--swap", path,
				"--address-space", "1024", "--page-size", "256",
				"--frames", "4"}

			Expect(execute("w 0x101 0x5\n", args...)).To(Succeed())

			Expect(execute("", "inspect", path)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("page 0x0001 -> slot 0"))

			Expect(execute("r 0x101\n", args...)).To(Succeed())
			Expect(stdout.String()).To(HavePrefix("0x0101 => 0x5\n"))
		})

		It("should leave dirty pages out of the swap file if asked", func() {
			path := filepath.Join(dir, "swap.bin")
			Expect(execute("", "mkswap", path,
				"--pages", "4", "--page-size", "256")).To(Succeed())

			input := filepath.Join(dir, "commands.txt")
			Expect(os.WriteFile(input, []byte("w 0x0 0x1\n"), 0o600)).
				To(Succeed())

			Expect(execute("", "run", "--swap", path, "--input", input,
				"--address-space", "1024", "--page-size", "256",
				"--frames", "4", "--no-flush-on-exit")).To(Succeed())

			Expect(execute("", "inspect", path)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("Allocated:   0"))
		})

		It("should read settings from a config file", func() {
			configPath := filepath.Join(dir, "vmsim.yaml")
			Expect(os.WriteFile(configPath, []byte(
				"address_space_size: 64\npage_size: 16\nframes: 1\n"),
				0o600)).To(Succeed())

			Expect(execute("r 0x40\n", "run", "--config", configPath)).
				To(Succeed())
			Expect(stdout.String()).To(HavePrefix("error: "))
		})

		It("should let flags override the config file", func() {
			configPath := filepath.Join(dir, "vmsim.yaml")
			Expect(os.WriteFile(configPath, []byte(
				"address_space_size: 64\npage_size: 16\nframes: 1\n"),
				0o600)).To(Succeed())

			Expect(execute("r 0x40\n", "run", "--config", configPath,
				"--address-space", "128")).To(Succeed())
			Expect(stdout.String()).To(HavePrefix("0x0040 => 0x0\n"))
		})

		It("should reject invalid settings", func() {
			err := execute("", "run", "--policy", "clock")

			Expect(err).To(MatchError(vm.ErrConfiguration))
		})

		It("should reject a swap file with another page size", func() {
			path := filepath.Join(dir, "swap.bin")
			Expect(execute("", "mkswap", path,
				"--pages", "256", "--page-size", "128")).To(Succeed())

			err := execute("", "run", "--swap", path)

			Expect(err).To(MatchError(vm.ErrConfiguration))
		})
	})

	Context("events", func() {
		It("should list the recorded events", func() {
			record := filepath.Join(dir, "events")

			Expect(execute("w 0x0 0x1\nr 0x0\n", "run",
				"--address-space", "64", "--page-size", "16",
				"--frames", "1", "--record", record)).To(Succeed())

			Expect(execute("", "events", record+".sqlite3",
				"--kind", "access")).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring(
				"access write 0x0000 => 0x1 (miss)"))
			Expect(stdout.String()).To(ContainSubstring(
				"access read  0x0000 => 0x1 (hit)"))
			Expect(stdout.String()).To(ContainSubstring("2 of 2 events"))

			Expect(execute("", "events", record+".sqlite3",
				"--page", "0", "--limit", "1")).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("fault"))
			Expect(stdout.String()).To(ContainSubstring("1 of 5 events"))
		})

		It("should reject unknown kinds", func() {
			record := filepath.Join(dir, "events")
			Expect(execute("", "run", "--address-space", "64",
				"--page-size", "16", "--frames", "1",
				"--record", record)).To(Succeed())

			Expect(execute("", "events", record+".sqlite3",
				"--kind", "teleport")).NotTo(Succeed())
		})
	})
})
