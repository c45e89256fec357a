package cmd

import (
	"fmt"
	"os"

	"github.com/sarchlab/vmsim/mem/vm/swap"
	"github.com/spf13/cobra"
)

func newMkswapCmd() *cobra.Command {
	mkswapCmd := &cobra.Command{
		Use:   "mkswap <file>",
		Short: "Create an empty swap file.",
		Long: "`mkswap <file> --pages N --page-size S` writes a swap " +
			"header for N pages of S bytes. Every page reads as zeros " +
			"until it is flushed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, _ := cmd.Flags().GetUint64("pages")
			pageSize, _ := cmd.Flags().GetUint64("page-size")
			force, _ := cmd.Flags().GetBool("force")

			err := createSwapFile(args[0], pages, pageSize, force)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Swap file '%s' created with %d pages of %d bytes.\n",
				args[0], pages, pageSize)

			return nil
		},
	}

	mkswapCmd.Flags().Uint64("pages", 256, "number of pages")
	mkswapCmd.Flags().Uint64("page-size", 256, "bytes of a page")
	mkswapCmd.Flags().Bool("force", false, "overwrite an existing file")

	return mkswapCmd
}

// createSwapFile formats a swap file. A forced run reuses an existing file,
// which keeps its content if the format fails, and is only cut to size once
// the header is written.
func createSwapFile(path string, pages, pageSize uint64, force bool) error {
	flags := os.O_RDWR | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_RDWR | os.O_CREATE
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}

	err = swap.Format(file, pages, pageSize)
	if err == nil && force {
		err = file.Truncate(int64(swap.HeaderSize(pages)))
	}

	if err != nil {
		file.Close()

		if !force {
			os.Remove(path)
		}

		return err
	}

	return file.Close()
}
