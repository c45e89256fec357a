package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/trace"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events <recording>",
		Short: "List the MMU events of a recording made with run --record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			reader.MapTable(trace.TableName, trace.EventEntry{})

			params, err := eventQuery(cmd)
			if err != nil {
				return err
			}

			results, total, err := reader.Query(
				context.Background(), trace.TableName, params)
			if err != nil {
				return err
			}

			printEvents(cmd.OutOrStdout(), results, total)

			return nil
		},
	}

	eventsCmd.Flags().String("kind", "",
		"only list events of this kind: access, fault, evict, flush or load")
	eventsCmd.Flags().Int64("page", -1, "only list events of this page")
	eventsCmd.Flags().Int("limit", 0, "list at most this many events")

	return eventsCmd
}

func eventQuery(cmd *cobra.Command) (datarecording.QueryParams, error) {
	params := datarecording.QueryParams{OrderBy: "Session, Seq"}
	where := ""

	kind, _ := cmd.Flags().GetString("kind")
	if kind != "" {
		switch kind {
		case trace.KindAccess, trace.KindFault, trace.KindEvict,
			trace.KindFlush, trace.KindLoad:
		default:
			return params, fmt.Errorf("unknown event kind %q", kind)
		}

		where = "Kind = ?"
		params.Args = append(params.Args, kind)
	}

	page, _ := cmd.Flags().GetInt64("page")
	if page >= 0 {
		if where != "" {
			where += " AND "
		}

		where += "PageNumber = ?"
		params.Args = append(params.Args, page)
	}

	params.Where = where
	params.Limit, _ = cmd.Flags().GetInt("limit")

	return params, nil
}

func printEvents(w io.Writer, results []any, total int) {
	for _, r := range results {
		e := r.(*trace.EventEntry)

		switch e.Kind {
		case trace.KindAccess:
			hit := "miss"
			if e.Hit {
				hit = "hit"
			}

			fmt.Fprintf(w, "%6d %-6s %-5s 0x%04X => 0x%X (%s)\n",
				e.Seq, e.Kind, e.Access, e.Address, e.Value, hit)
		default:
			fmt.Fprintf(w, "%6d %-6s page 0x%04X frame %d\n",
				e.Seq, e.Kind, e.PageNumber, e.FrameIndex)
		}
	}

	fmt.Fprintf(w, "%d of %d events\n", len(results), total)
}
