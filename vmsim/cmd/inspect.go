package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/vmsim/mem/vm/swap"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the header of a swap file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			header, err := swap.DecodeHeader(file)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			printHeader(cmd.OutOrStdout(), header)

			return nil
		},
	}
}

func printHeader(w io.Writer, h swap.Header) {
	allocated := 0
	for p := range h.Indices {
		if _, ok := h.Slot(uint64(p)); ok {
			allocated++
		}
	}

	fmt.Fprintf(w, "Pages:       %d\n", h.NumPages)
	fmt.Fprintf(w, "Page size:   %d\n", h.PageSize)
	fmt.Fprintf(w, "Header size: %d\n", swap.HeaderSize(h.NumPages))
	fmt.Fprintf(w, "Allocated:   %d\n", allocated)

	for p := range h.Indices {
		slot, ok := h.Slot(uint64(p))
		if !ok {
			continue
		}

		fmt.Fprintf(w, "  page 0x%04X -> slot %d\n", p, slot)
	}
}
